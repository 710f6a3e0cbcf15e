package subscription

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"

	TrialLength = 14 * 24 * time.Hour
)

type Subscription struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Platform       string    `json:"platform"`
	ReceiptData    string    `json:"receiptData"`
	ExpirationDate time.Time `json:"expirationDate"`
	IsTrial        bool      `json:"isTrial"`
	TransactionID  *string   `json:"transactionId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s Subscription) ActiveAt(t time.Time) bool {
	return !s.ExpirationDate.Before(t)
}

// Status is the entitlement view returned to clients. Each pointer is nil
// when no matching record exists.
type Status struct {
	ActiveSubscription *Subscription `json:"activeSubscription"`
	TrialSubscription  *Subscription `json:"trialSubscription"`
	LatestSubscription *Subscription `json:"latestSubscription"`
	FreeTrialEligible  bool          `json:"freeTrialEligible"`
}

var (
	ErrTrialExists         = errors.New("unable to create a second trial period")
	ErrAlreadyRecorded     = errors.New("transaction already recorded")
	ErrReceiptInvalid      = errors.New("error validating iOS purchase receipt")
	ErrPlatformUnsupported = errors.New("platform receipt verification not supported")
	ErrInvalidPlatform     = errors.New("invalid platform")
)

type CreateRequest struct {
	Platform    string `json:"platform"`
	ReceiptData string `json:"receiptData"`
	IsTrial     bool   `json:"isTrial"`
}

// productDurations maps App Store product identifiers to the entitlement
// length they grant, in 31-day months.
var productDurations = map[string]time.Duration{
	"onemonth":    31 * 24 * time.Hour,
	"threemonth":  3 * 31 * 24 * time.Hour,
	"sixmonth":    6 * 31 * 24 * time.Hour,
	"twelvemonth": 12 * 31 * 24 * time.Hour,
}

func ProductDuration(productID string) (time.Duration, bool) {
	d, ok := productDurations[productID]
	return d, ok
}

func NewTrial(userID string, req CreateRequest, now time.Time) Subscription {
	return Subscription{
		ID:             uuid.NewString(),
		UserID:         userID,
		Platform:       req.Platform,
		ReceiptData:    req.ReceiptData,
		ExpirationDate: now.Add(TrialLength),
		IsTrial:        true,
		CreatedAt:      now,
	}
}

func NewPurchase(userID string, req CreateRequest, transactionID string, expiresAt, now time.Time) Subscription {
	txn := transactionID

	return Subscription{
		ID:             uuid.NewString(),
		UserID:         userID,
		Platform:       req.Platform,
		ReceiptData:    req.ReceiptData,
		ExpirationDate: expiresAt,
		TransactionID:  &txn,
		CreatedAt:      now,
	}
}
