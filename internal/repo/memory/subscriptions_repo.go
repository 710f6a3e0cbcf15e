package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/certhub/internal/domain/subscription"
)

// SubscriptionsRepo keeps subscription records in process memory with the
// same uniqueness rules as the postgres tables: one trial per user and one
// row per (user, transaction).
type SubscriptionsRepo struct {
	mu    sync.RWMutex
	items map[string][]subscription.Subscription // keyed by user id
}

func NewSubscriptionsRepo() *SubscriptionsRepo {
	return &SubscriptionsRepo{
		items: make(map[string][]subscription.Subscription),
	}
}

func (r *SubscriptionsRepo) InsertTrial(_ context.Context, s subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items[s.UserID] {
		if existing.IsTrial {
			return subscription.ErrTrialExists
		}
	}

	s.IsTrial = true
	s.TransactionID = nil
	r.items[s.UserID] = append(r.items[s.UserID], s)
	return nil
}

func (r *SubscriptionsRepo) InsertPurchase(_ context.Context, s subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.TransactionID != nil && r.hasTransaction(s.UserID, *s.TransactionID) {
		return subscription.ErrAlreadyRecorded
	}

	s.IsTrial = false
	r.items[s.UserID] = append(r.items[s.UserID], s)
	return nil
}

func (r *SubscriptionsRepo) ExistsByTransaction(_ context.Context, userID, transactionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.hasTransaction(userID, transactionID), nil
}

func (r *SubscriptionsRepo) FindTrial(_ context.Context, userID string) (*subscription.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.items[userID] {
		if s.IsTrial {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

func (r *SubscriptionsRepo) Active(_ context.Context, userID string, now time.Time) (*subscription.Subscription, error) {
	return r.furthest(userID, func(s subscription.Subscription) bool { return s.ActiveAt(now) }), nil
}

func (r *SubscriptionsRepo) LatestNonTrial(_ context.Context, userID string) (*subscription.Subscription, error) {
	return r.furthest(userID, func(s subscription.Subscription) bool { return !s.IsTrial }), nil
}

// All returns a user's records ordered by expiration, newest first.
func (r *SubscriptionsRepo) All(userID string) []subscription.Subscription {
	r.mu.RLock()
	out := append([]subscription.Subscription(nil), r.items[userID]...)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpirationDate.After(out[j].ExpirationDate)
	})
	return out
}

// caller holds the lock
func (r *SubscriptionsRepo) hasTransaction(userID, transactionID string) bool {
	for _, s := range r.items[userID] {
		if s.TransactionID != nil && *s.TransactionID == transactionID {
			return true
		}
	}
	return false
}

func (r *SubscriptionsRepo) furthest(userID string, keep func(subscription.Subscription) bool) *subscription.Subscription {
	for _, s := range r.All(userID) {
		if keep(s) {
			out := s
			return &out
		}
	}
	return nil
}
