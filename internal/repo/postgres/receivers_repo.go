package postgres

import (
	"context"
	"fmt"

	"github.com/geocoder89/certhub/internal/domain/receiver"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReceiversRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewReceiversRepo(pool *pgxpool.Pool, prom *observability.Prom) *ReceiversRepo {
	return &ReceiversRepo{pool: pool, prom: prom}
}

func (r *ReceiversRepo) Create(ctx context.Context, req receiver.CreateReceiverRequest) (receiver.Receiver, error) {
	rc := receiver.NewFromCreateRequest(req)

	err := r.prom.ObserveDB("receivers.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO receivers (id, event_id, email, created_at) VALUES ($1,$2,$3,$4)`,
			rc.ID, rc.EventID, rc.Email, rc.CreatedAt,
		)
		return err
	})

	if err != nil {
		if uniqueConstraint(err) == "receivers_email_uniq" {
			return receiver.Receiver{}, receiver.ErrEmailTaken
		}
		return receiver.Receiver{}, fmt.Errorf("receivers.create: %w", err)
	}

	return rc, nil
}

func (r *ReceiversRepo) ListByEvent(ctx context.Context, eventID string) ([]receiver.Receiver, error) {
	out := make([]receiver.Receiver, 0)

	err := r.prom.ObserveDB("receivers.list_by_event", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, event_id, email, created_at FROM receivers WHERE event_id = $1 ORDER BY created_at ASC, id ASC`,
			eventID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rc receiver.Receiver
			if err := rows.Scan(&rc.ID, &rc.EventID, &rc.Email, &rc.CreatedAt); err != nil {
				return err
			}
			out = append(out, rc)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("receivers.list_by_event: %w", err)
	}

	return out, nil
}

func (r *ReceiversRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.prom.ObserveDB("receivers.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM receivers WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return fmt.Errorf("receivers.delete: %w", err)
	}

	if affected == 0 {
		return receiver.ErrNotFound
	}

	return nil
}

func (r *ReceiversRepo) GetByID(ctx context.Context, id string) (receiver.Receiver, error) {
	var rc receiver.Receiver

	err := r.prom.ObserveDB("receivers.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, event_id, email, created_at FROM receivers WHERE id = $1`, id,
		).Scan(&rc.ID, &rc.EventID, &rc.Email, &rc.CreatedAt)
	})

	if err != nil {
		if isNoRows(err) {
			return receiver.Receiver{}, receiver.ErrNotFound
		}
		return receiver.Receiver{}, fmt.Errorf("receivers.get_by_id: %w", err)
	}

	return rc, nil
}
