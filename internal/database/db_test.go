package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unique violation",
			err:  &pq.Error{Code: "23505"},
			want: true,
		},
		{
			name: "wrapped unique violation",
			err:  fmt.Errorf("insert failed: %w", &pq.Error{Code: "23505"}),
			want: true,
		},
		{
			name: "other pq error",
			err:  &pq.Error{Code: "23503"},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestToNullString(t *testing.T) {
	if ns := ToNullString(""); ns.Valid {
		t.Error("empty string should be invalid")
	}
	if ns := ToNullString("0xabc"); !ns.Valid || ns.String != "0xabc" {
		t.Errorf("unexpected NullString: %+v", ns)
	}
}

func TestToNullInt64(t *testing.T) {
	if ni := ToNullInt64(0); ni.Valid {
		t.Error("zero should be invalid")
	}
	if ni := ToNullInt64(42); !ni.Valid || ni.Int64 != 42 {
		t.Errorf("unexpected NullInt64: %+v", ni)
	}
}
