package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/certhub/internal/domain/user"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, firstname, lastname, password_hash, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Firstname,
		&u.Lastname,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.prom.ObserveDB("users.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, firstname, lastname, password_hash, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.Email, u.Firstname, u.Lastname, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		return e
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("users.create: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("users.get_by_id: %w", err)
	}

	return u, nil
}

// GetByEmail matches case-insensitively, same as the uniqueness index.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_email", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("users.get_by_email: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.prom.ObserveDB("users.email_exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email,
		).Scan(&exists)
	})

	if err != nil {
		return false, fmt.Errorf("users.email_exists: %w", err)
	}

	return exists, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.update", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
				SET email = $2,
					firstname = $3,
					lastname = $4,
					updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, req.Email, req.Firstname, req.Lastname,
		))
		return e
	})

	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return user.User{}, user.ErrNotFound
		case IsUniqueViolation(err):
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("users.update: %w", err)
	}

	return u, nil
}
