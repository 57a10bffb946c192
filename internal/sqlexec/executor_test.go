package sqlexec

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestRender(t *testing.T) {
	id := [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"null", nil, nil},
		{"text", "EMEA", "EMEA"},
		{"bool", true, "true"},
		{"int4", int32(42), "42"},
		{"int8", int64(-7), "-7"},
		{"float8", 12.5, "12.5"},
		{"uuid array", id, "123e4567-e89b-12d3-a456-426614174000"},
		{"uuid bytes", id[:], "123e4567-e89b-12d3-a456-426614174000"},
		{"bytea", []byte{0xde, 0xad}, `\xdead`},
		{"date", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), "2024-02-29"},
		{"timestamp", time.Date(2024, 2, 29, 13, 4, 5, 0, time.UTC), "2024-02-29T13:04:05Z"},
		{"numeric", pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}, "123.45"},
		{"numeric null", pgtype.Numeric{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(tt.in); got != tt.want {
				t.Errorf("render(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}
