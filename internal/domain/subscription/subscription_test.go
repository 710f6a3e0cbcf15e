package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductDuration(t *testing.T) {
	tests := map[string]int{
		"onemonth":    31,
		"threemonth":  93,
		"sixmonth":    186,
		"twelvemonth": 372,
	}

	for product, days := range tests {
		d, ok := ProductDuration(product)
		require.True(t, ok, product)
		assert.Equal(t, time.Duration(days)*24*time.Hour, d, product)
	}

	_, ok := ProductDuration("lifetime")
	assert.False(t, ok)
}

func TestNewTrial_ExpiresInFourteenDays(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s := NewTrial("user-1", CreateRequest{Platform: "ios", IsTrial: true}, now)

	assert.True(t, s.IsTrial)
	assert.Nil(t, s.TransactionID)
	assert.Equal(t, now.Add(14*24*time.Hour), s.ExpirationDate)
	assert.True(t, s.ActiveAt(now.Add(13*24*time.Hour)))
	assert.False(t, s.ActiveAt(now.Add(15*24*time.Hour)))
}

func TestNewPurchase_CopiesTransactionID(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := created.Add(time.Hour)
	s := NewPurchase("user-1", CreateRequest{Platform: "ios", ReceiptData: "abc"}, "txn-1", exp, created)

	require.NotNil(t, s.TransactionID)
	assert.Equal(t, "txn-1", *s.TransactionID)
	assert.False(t, s.IsTrial)
	assert.Equal(t, "abc", s.ReceiptData)
	assert.Equal(t, created, s.CreatedAt)
	assert.Equal(t, exp, s.ExpirationDate)
}
