package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/geocoder89/certhub/internal/domain/subscription"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subscriptionColumns = `id, user_id, platform, receipt_data, expiration_date, is_trial, transaction_id, created_at`

type SubscriptionsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSubscriptionsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SubscriptionsRepo {
	return &SubscriptionsRepo{pool: pool, prom: prom}
}

func scanSubscription(row pgx.Row) (subscription.Subscription, error) {
	var s subscription.Subscription

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Platform,
		&s.ReceiptData,
		&s.ExpirationDate,
		&s.IsTrial,
		&s.TransactionID,
		&s.CreatedAt,
	)

	return s, err
}

// InsertTrial relies on the partial unique index so two concurrent trial
// requests for one user cannot both succeed.
func (r *SubscriptionsRepo) InsertTrial(ctx context.Context, s subscription.Subscription) error {
	var affected int64

	err := r.prom.ObserveDB("subscriptions.insert_trial", func() error {
		tag, err := r.pool.Exec(ctx,
			`INSERT INTO subscriptions (`+subscriptionColumns+`)
			VALUES ($1,$2,$3,$4,$5,TRUE,NULL,$6)
			ON CONFLICT (user_id) WHERE is_trial DO NOTHING`,
			s.ID, s.UserID, s.Platform, s.ReceiptData, s.ExpirationDate, s.CreatedAt,
		)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return fmt.Errorf("subscriptions.insert_trial: %w", err)
	}

	if affected == 0 {
		return subscription.ErrTrialExists
	}

	return nil
}

// InsertPurchase records one App Store transaction. A transaction already
// stored for the user reports ErrAlreadyRecorded.
func (r *SubscriptionsRepo) InsertPurchase(ctx context.Context, s subscription.Subscription) error {
	var affected int64

	err := r.prom.ObserveDB("subscriptions.insert_purchase", func() error {
		tag, err := r.pool.Exec(ctx,
			`INSERT INTO subscriptions (`+subscriptionColumns+`)
			VALUES ($1,$2,$3,$4,$5,FALSE,$6,$7)
			ON CONFLICT (user_id, transaction_id) WHERE transaction_id IS NOT NULL DO NOTHING`,
			s.ID, s.UserID, s.Platform, s.ReceiptData, s.ExpirationDate, s.TransactionID, s.CreatedAt,
		)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return fmt.Errorf("subscriptions.insert_purchase: %w", err)
	}

	if affected == 0 {
		return subscription.ErrAlreadyRecorded
	}

	return nil
}

func (r *SubscriptionsRepo) ExistsByTransaction(ctx context.Context, userID, transactionID string) (bool, error) {
	var exists bool

	err := r.prom.ObserveDB("subscriptions.exists_by_transaction", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_id = $1 AND transaction_id = $2)`,
			userID, transactionID,
		).Scan(&exists)
	})

	if err != nil {
		return false, fmt.Errorf("subscriptions.exists_by_transaction: %w", err)
	}

	return exists, nil
}

func (r *SubscriptionsRepo) FindTrial(ctx context.Context, userID string) (*subscription.Subscription, error) {
	return r.findOne(ctx, "subscriptions.find_trial",
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 AND is_trial`, userID)
}

// Active returns the unexpired record with the furthest expiration, trial or not.
func (r *SubscriptionsRepo) Active(ctx context.Context, userID string, now time.Time) (*subscription.Subscription, error) {
	return r.findOne(ctx, "subscriptions.active",
		`SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = $1 AND expiration_date >= $2
		ORDER BY expiration_date DESC, created_at DESC
		LIMIT 1`, userID, now)
}

// LatestNonTrial returns the paid record with the furthest expiration, even if expired.
func (r *SubscriptionsRepo) LatestNonTrial(ctx context.Context, userID string) (*subscription.Subscription, error) {
	return r.findOne(ctx, "subscriptions.latest_non_trial",
		`SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = $1 AND NOT is_trial
		ORDER BY expiration_date DESC, created_at DESC
		LIMIT 1`, userID)
}

// findOne maps no rows to a nil record.
func (r *SubscriptionsRepo) findOne(ctx context.Context, op, query string, args ...any) (*subscription.Subscription, error) {
	var s subscription.Subscription

	err := r.prom.ObserveDB(op, func() error {
		var err error
		s, err = scanSubscription(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &s, nil
}
