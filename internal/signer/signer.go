package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// ErrInvalidPayload reports a claim message missing a required field or
// carrying a non-numeric amount, fee, or timestamp.
var ErrInvalidPayload = errors.New("invalid claim payload")

// ClaimMessage is the payload a user presents on the destination chain to
// claim relayed tokens. The four address fields are gateway/token/user
// addresses; amount, fee, and timestamp are decimal strings bound for
// uint256 slots on chain.
type ClaimMessage struct {
	FromChain string
	ToChain   string
	OldToken  string
	Sender    string
	Amount    string
	Fee       string
	Timestamp string
}

// Signature is the authorization artifact returned to the caller. M is the
// canonical message digest; deposits are later recorded under it, so it
// doubles as the deposit's natural key. V is normalized to 27/28.
type Signature struct {
	M string `json:"m"`
	R string `json:"r"`
	S string `json:"s"`
	V uint8  `json:"v"`
}

// Signer produces claim authorizations with a process-wide secp256k1 key
// loaded once at startup. It is stateless beyond the key material.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	logger  *zap.Logger
}

// New parses the hex-encoded private key and returns a ready Signer
func New(privateKeyHex string, logger *zap.Logger) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	logger.Info("Signer initialized", zap.String("address", address.Hex()))

	return &Signer{
		key:     key,
		address: address,
		logger:  logger,
	}, nil
}

// Address returns the address corresponding to the signing key
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign canonicalizes the claim message and signs its digest. The signature
// is made over the Ethereum signed-message prefix of the digest, so an
// on-chain ecrecover of the prefixed hash yields the relay's address.
func (s *Signer) Sign(msg ClaimMessage) (*Signature, error) {
	digest, err := msg.Hash()
	if err != nil {
		return nil, err
	}

	prefixed := prefixedHash(digest)
	sig, err := crypto.Sign(prefixed.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign claim digest: %w", err)
	}

	return &Signature{
		M: digest.Hex(),
		R: hexutil.Encode(sig[:32]),
		S: hexutil.Encode(sig[32:64]),
		V: sig[64] + 27,
	}, nil
}

// Hash computes the canonical digest of the claim message. The encoding is
// tightly packed in a fixed field order (addresses as 20 bytes, numerics as
// 32-byte big-endian words), so the result depends only on field values.
func (m ClaimMessage) Hash() (common.Hash, error) {
	if err := m.validate(); err != nil {
		return common.Hash{}, err
	}

	amount, err := parseUint256("amount", m.Amount)
	if err != nil {
		return common.Hash{}, err
	}
	fee, err := parseUint256("fee", m.Fee)
	if err != nil {
		return common.Hash{}, err
	}
	timestamp, err := parseUint256("timestamp", m.Timestamp)
	if err != nil {
		return common.Hash{}, err
	}

	buf := make([]byte, 0, 4*common.AddressLength+3*32)
	buf = append(buf, common.HexToAddress(m.FromChain).Bytes()...)
	buf = append(buf, common.HexToAddress(m.ToChain).Bytes()...)
	buf = append(buf, common.HexToAddress(m.OldToken).Bytes()...)
	buf = append(buf, common.HexToAddress(m.Sender).Bytes()...)
	buf = append(buf, common.LeftPadBytes(amount.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(fee.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(timestamp.Bytes(), 32)...)

	return crypto.Keccak256Hash(buf), nil
}

// RecoverAddress returns the address that produced sig over the given claim
// digest. Used to verify authorizations off chain.
func RecoverAddress(digest common.Hash, sig *Signature) (common.Address, error) {
	r, err := hexutil.Decode(sig.R)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode r: %w", err)
	}
	s, err := hexutil.Decode(sig.S)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode s: %w", err)
	}
	if len(r) != 32 || len(s) != 32 || sig.V < 27 {
		return common.Address{}, fmt.Errorf("malformed signature")
	}

	raw := make([]byte, 65)
	copy(raw[:32], r)
	copy(raw[32:64], s)
	raw[64] = sig.V - 27

	pub, err := crypto.SigToPub(prefixedHash(digest).Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func prefixedHash(digest common.Hash) common.Hash {
	return crypto.Keccak256Hash(
		[]byte("\x19Ethereum Signed Message:\n32"),
		digest.Bytes(),
	)
}

func (m ClaimMessage) validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"fromChain", m.FromChain},
		{"toChain", m.ToChain},
		{"oldToken", m.OldToken},
		{"sender", m.Sender},
		{"amount", m.Amount},
		{"fee", m.Fee},
		{"timestamp", m.Timestamp},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: missing %s", ErrInvalidPayload, f.name)
		}
	}
	return nil
}

func parseUint256(name, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative decimal integer", ErrInvalidPayload, name)
	}
	return n, nil
}
