package infra

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericToInt64_RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 100, -100, 1_234_567_890} {
		got, err := NumericToInt64(Int64ToNumeric(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestNumericToInt64_Null(t *testing.T) {
	_, err := NumericToInt64(pgtype.Numeric{})
	assert.Error(t, err)
}

func TestNumericToInt64_PositiveExponent(t *testing.T) {
	// 12 * 10^2 = 1200, as PostgreSQL may return trailing-zero values.
	n := pgtype.Numeric{Int: big.NewInt(12), Exp: 2, Valid: true}
	got, err := NumericToInt64(n)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got)
}

func TestNumericToInt64_Overflow(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 80)
	_, err := NumericToInt64(pgtype.Numeric{Int: huge, Valid: true})
	assert.Error(t, err)
}
