package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return v
}

func Test_GrossTopUpPrice(t *testing.T) {
	t.Run("gateway rate and fixed fee are grossed up", func(t *testing.T) {
		base, vat, total, err := GrossTopUpPrice(d(t, "100"), d(t, "0.15"), d(t, "0.03"), d(t, "2.00"))
		require.NoError(t, err)
		assert.Equal(t, "100.00", base.StringFixed(2))
		assert.Equal(t, "15.00", vat.StringFixed(2))
		// (100 + 15 + 2) / 0.97 = 120.6185... -> 120.62
		assert.Equal(t, "120.62", total.StringFixed(2))
	})

	t.Run("zero gateway charges", func(t *testing.T) {
		base, vat, total, err := GrossTopUpPrice(d(t, "100"), d(t, "0.15"), decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, "100.00", base.StringFixed(2))
		assert.Equal(t, "15.00", vat.StringFixed(2))
		assert.Equal(t, "115.00", total.StringFixed(2))
	})

	t.Run("gateway rate at or above 1 fails", func(t *testing.T) {
		_, _, _, err := GrossTopUpPrice(d(t, "100"), d(t, "0.15"), d(t, "1"), decimal.Zero)
		assert.EqualError(t, err, "gateway rate 1 is too high to gross up")

		_, _, _, err = GrossTopUpPrice(d(t, "100"), d(t, "0.15"), d(t, "1.25"), decimal.Zero)
		assert.EqualError(t, err, "gateway rate 1.25 is too high to gross up")
	})
}

func Test_SplitGift(t *testing.T) {
	t.Run("basic split", func(t *testing.T) {
		split := SplitGift(d(t, "100"), d(t, "0.25"), d(t, "0.15"))
		assert.Equal(t, "25.00", split.CommissionGross.StringFixed(2))
		assert.Equal(t, "3.75", split.VATOnCommission.StringFixed(2))
		assert.Equal(t, "21.25", split.CommissionNet.StringFixed(2))
		assert.Equal(t, "75.00", split.CreatorPayout.StringFixed(2))
	})

	t.Run("rounding is half up per leg", func(t *testing.T) {
		split := SplitGift(d(t, "9.99"), d(t, "0.125"), d(t, "0.15"))
		// 9.99 * 12.5% = 1.24875 -> 1.25
		assert.Equal(t, "1.25", split.CommissionGross.StringFixed(2))
		// 1.25 * 0.15 = 0.1875 -> 0.19
		assert.Equal(t, "0.19", split.VATOnCommission.StringFixed(2))
		assert.Equal(t, "1.06", split.CommissionNet.StringFixed(2))
		assert.Equal(t, "8.74", split.CreatorPayout.StringFixed(2))
	})

	t.Run("split identities hold", func(t *testing.T) {
		for _, value := range []string{"0.01", "1.00", "49.99", "10000"} {
			split := SplitGift(d(t, value), d(t, "0.25"), d(t, "0.15"))
			assert.True(t, split.CommissionGross.Equal(split.CommissionNet.Add(split.VATOnCommission)), "value %s", value)
			assert.True(t, d(t, value).Equal(split.CreatorPayout.Add(split.CommissionGross)), "value %s", value)
		}
	})
}

func Test_Round2(t *testing.T) {
	assert.Equal(t, "1.25", Round2(d(t, "1.245")).StringFixed(2))
	assert.Equal(t, "1.24", Round2(d(t, "1.244")).StringFixed(2))
	assert.Equal(t, "120.62", Round2(d(t, "120.6185567")).StringFixed(2))
}
