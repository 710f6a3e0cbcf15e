package appstore

import (
	"fmt"
	"strconv"
	"time"
)

type verifyRequest struct {
	ReceiptData string `json:"receipt-data"`
	Password    string `json:"password,omitempty"`
}

type verifyResponse struct {
	Status  int      `json:"status"`
	Receipt *Receipt `json:"receipt"`
}

type Receipt struct {
	BundleID string     `json:"bundle_id"`
	InApp    []Purchase `json:"in_app"`
}

// Purchase is one in_app line item. Apple encodes the millisecond timestamp
// as a decimal string.
type Purchase struct {
	ProductID      string `json:"product_id"`
	TransactionID  string `json:"transaction_id"`
	PurchaseDateMS string `json:"purchase_date_ms"`
}

func (p Purchase) PurchasedAt() (time.Time, error) {
	ms, err := strconv.ParseInt(p.PurchaseDateMS, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("purchase_date_ms %q: %w", p.PurchaseDateMS, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
