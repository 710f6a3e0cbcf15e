package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/certhub/internal/domain/attendee"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const attendeeColumns = `id, event_id, user_id, firstname, lastname, email, phone, signature,
	received_certificate, created_at, updated_at`

type AttendeesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAttendeesRepo(pool *pgxpool.Pool, prom *observability.Prom) *AttendeesRepo {
	return &AttendeesRepo{pool: pool, prom: prom}
}

func scanAttendee(row pgx.Row) (attendee.Attendee, error) {
	var a attendee.Attendee

	err := row.Scan(
		&a.ID,
		&a.EventID,
		&a.UserID,
		&a.Firstname,
		&a.Lastname,
		&a.Email,
		&a.Phone,
		&a.Signature,
		&a.ReceivedCertificate,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (r *AttendeesRepo) Create(ctx context.Context, a attendee.Attendee) (attendee.Attendee, error) {
	err := r.prom.ObserveDB("attendees.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO attendees (`+attendeeColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			a.ID, a.EventID, a.UserID, a.Firstname, a.Lastname, a.Email, a.Phone, a.Signature,
			a.ReceivedCertificate, a.CreatedAt, a.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return attendee.Attendee{}, fmt.Errorf("attendees.create: %w", err)
	}

	return a, nil
}

func (r *AttendeesRepo) ListByEvent(ctx context.Context, eventID string) ([]attendee.Attendee, error) {
	out := make([]attendee.Attendee, 0)

	err := r.prom.ObserveDB("attendees.list_by_event", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+attendeeColumns+` FROM attendees WHERE event_id = $1 ORDER BY created_at ASC, id ASC`, eventID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanAttendee(rows)
			if err != nil {
				return err
			}
			out = append(out, a)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("attendees.list_by_event: %w", err)
	}

	return out, nil
}

func (r *AttendeesRepo) GetByID(ctx context.Context, id string) (attendee.Attendee, error) {
	var a attendee.Attendee

	err := r.prom.ObserveDB("attendees.get_by_id", func() error {
		var err error
		a, err = scanAttendee(r.pool.QueryRow(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendee.Attendee{}, attendee.ErrNotFound
		}
		return attendee.Attendee{}, fmt.Errorf("attendees.get_by_id: %w", err)
	}

	return a, nil
}

func (r *AttendeesRepo) Update(ctx context.Context, id string, req attendee.UpdateAttendeeRequest) (attendee.Attendee, error) {
	var a attendee.Attendee

	err := r.prom.ObserveDB("attendees.update", func() error {
		var err error
		a, err = scanAttendee(r.pool.QueryRow(ctx,
			`UPDATE attendees
				SET firstname = $2,
					lastname = $3,
					email = $4,
					phone = $5,
					updated_at = NOW()
			WHERE id = $1
			RETURNING `+attendeeColumns,
			id, req.Firstname, req.Lastname, req.Email, req.Phone,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendee.Attendee{}, attendee.ErrNotFound
		}
		return attendee.Attendee{}, fmt.Errorf("attendees.update: %w", err)
	}

	return a, nil
}

func (r *AttendeesRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.prom.ObserveDB("attendees.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM attendees WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return fmt.Errorf("attendees.delete: %w", err)
	}

	if affected == 0 {
		return attendee.ErrNotFound
	}

	return nil
}

// MarkCertificatesSent flags every attendee of the event as having received
// a certificate.
func (r *AttendeesRepo) MarkCertificatesSent(ctx context.Context, eventID string) error {
	err := r.prom.ObserveDB("attendees.mark_certificates_sent", func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE attendees SET received_certificate = TRUE, updated_at = NOW() WHERE event_id = $1`, eventID)
		return err
	})

	if err != nil {
		return fmt.Errorf("attendees.mark_certificates_sent: %w", err)
	}

	return nil
}
