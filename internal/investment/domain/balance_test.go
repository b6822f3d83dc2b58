package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvestorBalanceHold(t *testing.T) {
	b := NewInvestorBalance("INV-1", "user-1")
	require.NoError(t, b.Accrue(decimal.NewFromInt(100)))

	t.Run("hold within available", func(t *testing.T) {
		require.NoError(t, b.Hold(decimal.NewFromInt(60)))
		assert.True(t, b.Available().Equal(decimal.NewFromInt(40)))
	})

	t.Run("hold beyond available fails", func(t *testing.T) {
		err := b.Hold(decimal.NewFromInt(41))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})

	t.Run("non positive hold rejected", func(t *testing.T) {
		assert.Error(t, b.Hold(decimal.Zero))
	})
}

func TestInvestorBalanceSettleAndRelease(t *testing.T) {
	b := NewInvestorBalance("INV-1", "user-1")
	require.NoError(t, b.Accrue(decimal.NewFromInt(100)))
	require.NoError(t, b.Hold(decimal.NewFromInt(30)))

	require.NoError(t, b.SettleHold(decimal.NewFromInt(30)))
	assert.True(t, b.Held.IsZero())
	assert.True(t, b.Completed.Equal(decimal.NewFromInt(30)))
	assert.True(t, b.Available().Equal(decimal.NewFromInt(70)))

	// 冻结已清零后再结算应失败
	assert.ErrorIs(t, b.SettleHold(decimal.NewFromInt(1)), ErrInsufficientFunds)

	require.NoError(t, b.Hold(decimal.NewFromInt(50)))
	require.NoError(t, b.ReleaseHold(decimal.NewFromInt(50)))
	assert.True(t, b.Held.IsZero())
	assert.True(t, b.Available().Equal(decimal.NewFromInt(70)))
}

// held + completed 永远不超过 total_accrued
func TestInvestorBalanceInvariant(t *testing.T) {
	b := NewInvestorBalance("INV-1", "user-1")
	require.NoError(t, b.Accrue(decimal.NewFromInt(100)))
	require.NoError(t, b.Hold(decimal.NewFromInt(60)))
	require.NoError(t, b.SettleHold(decimal.NewFromInt(60)))
	require.NoError(t, b.Hold(decimal.NewFromInt(40)))

	assert.True(t, b.Held.Add(b.Completed).LessThanOrEqual(b.TotalAccrued))
	assert.False(t, b.Available().IsNegative())

	assert.ErrorIs(t, b.Hold(decimal.NewFromInt(1)), ErrInsufficientFunds)
}
