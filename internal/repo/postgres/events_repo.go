package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/certhub/internal/domain/event"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, user_id, name, date, address, city, state, zipcode, course_no, course_name,
	number_of_course_credits, presenter_name, training_provider, is_submitted, created_at, updated_at`

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// constructor function

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{
		pool: pool,
		prom: prom,
	}
}

func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Name,
		&e.Date,
		&e.Address,
		&e.City,
		&e.State,
		&e.Zipcode,
		&e.CourseNo,
		&e.CourseName,
		&e.NumberOfCourseCredits,
		&e.PresenterName,
		&e.TrainingProvider,
		&e.IsSubmitted,
		&e.CreatedAt,
		&e.UpdatedAt,
	)

	return e, err
}

func (r *EventsRepo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	e := event.NewFromCreateRequest(req)

	err := r.prom.ObserveDB("events.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO events (`+eventColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			e.ID, e.UserID, e.Name, e.Date, e.Address, e.City, e.State, e.Zipcode, e.CourseNo, e.CourseName,
			e.NumberOfCourseCredits, e.PresenterName, e.TrainingProvider, e.IsSubmitted, e.CreatedAt, e.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return event.Event{}, fmt.Errorf("events.create: %w", err)
	}

	return e, nil
}

func (r *EventsRepo) ListByUser(ctx context.Context, userID string) ([]event.Event, error) {
	output := make([]event.Event, 0)

	err := r.prom.ObserveDB("events.list_by_user", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+eventColumns+` FROM events WHERE user_id = $1 ORDER BY date DESC, id ASC`, userID)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			e, err := scanEvent(rows)

			if err != nil {
				return err
			}

			output = append(output, e)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("events.list_by_user: %w", err)
	}

	return output, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event

	err := r.prom.ObserveDB("events.get_by_id", func() error {
		var err error
		e, err = scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, fmt.Errorf("events.get_by_id: %w", err)
	}

	return e, nil
}

func (r *EventsRepo) Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
	var e event.Event

	err := r.prom.ObserveDB("events.update", func() error {
		var err error
		e, err = scanEvent(r.pool.QueryRow(
			ctx,
			`UPDATE events
				SET name = $2,
					date = $3,
					address = $4,
					city = $5,
					state = $6,
					zipcode = $7,
					course_no = $8,
					course_name = $9,
					number_of_course_credits = $10,
					presenter_name = $11,
					training_provider = $12,
					updated_at = NOW()
			WHERE id = $1
			RETURNING `+eventColumns,
			id,
			req.Name,
			req.Date,
			req.Address,
			req.City,
			req.State,
			req.Zipcode,
			req.CourseNo,
			req.CourseName,
			req.NumberOfCourseCredits,
			req.PresenterName,
			req.TrainingProvider,
		))
		return err
	})

	if err != nil {
		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, fmt.Errorf("events.update: %w", err)
	}

	return e, nil
}

// MarkSubmitted flips is_submitted once; a second call reports ErrAlreadySubmitted.
func (r *EventsRepo) MarkSubmitted(ctx context.Context, id string) error {
	var affected int64

	err := r.prom.ObserveDB("events.mark_submitted", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE events SET is_submitted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_submitted`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return fmt.Errorf("events.mark_submitted: %w", err)
	}

	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return event.ErrAlreadySubmitted
	}

	return nil
}

func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.prom.ObserveDB("events.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return fmt.Errorf("events.delete: %w", err)
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return event.ErrNotFound
	}

	return nil
}
