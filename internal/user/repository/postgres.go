package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meisaku0/backend/internal/db"
	"github.com/meisaku0/backend/internal/user/domain"
)

const (
	userColumns     = `id::text, username, ban, COALESCE(ban_reason, ''), created_at, updated_at`
	emailColumns    = `id::text, user_id::text, address, active, activation_token::text, created_at, updated_at`
	passwordColumns = `id::text, user_id::text, hash, salt, COALESCE(reset_token::text, ''), reset_token_retry, created_at, updated_at`
)

// PostgresRepository stores accounts in users, user_emails and user_passwords.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a user repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, nil
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByUsername returns the user with username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *PostgresRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	if !validID(exceptID) {
		exceptID = uuid.Nil.String()
	}
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`,
		username, exceptID).Scan(&taken)
	return taken, err
}

func (r *PostgresRepository) EmailTaken(ctx context.Context, address string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_emails WHERE address = $1)`, address).Scan(&taken)
	return taken, err
}

// CreateWithCredentials inserts the user, email and password in one transaction.
func (r *PostgresRepository) CreateWithCredentials(ctx context.Context, u *domain.User, e *domain.Email, p *domain.Password) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (id, username, ban, ban_reason, created_at, updated_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		`, u.ID, u.Username, u.Ban, u.BanReason, u.CreatedAt, u.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_emails (id, user_id, address, active, activation_token, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, e.ID, u.ID, e.Address, e.Active, e.ActivationToken, e.CreatedAt, e.UpdatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO user_passwords (id, user_id, hash, salt, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.ID, u.ID, p.Hash, p.Salt, p.CreatedAt, p.UpdatedAt)
		return err
	})
	return mapUnique(err)
}

// UpdateUsername renames user id. A concurrent holder of username yields ErrUsernameTaken.
func (r *PostgresRepository) UpdateUsername(ctx context.Context, id, username string) error {
	if !validID(id) {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET username = $2, updated_at = now() WHERE id = $1`, id, username)
	return mapUnique(err)
}

// GetEmailByUser returns the email of userID, or nil if none.
func (r *PostgresRepository) GetEmailByUser(ctx context.Context, userID string) (*domain.Email, error) {
	if !validID(userID) {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `SELECT `+emailColumns+` FROM user_emails WHERE user_id = $1`, userID)
	var e domain.Email
	err := row.Scan(&e.ID, &e.UserID, &e.Address, &e.Active, &e.ActivationToken, &e.CreatedAt, &e.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PostgresRepository) ActivateEmail(ctx context.Context, token, next string) (bool, error) {
	if !validID(token) {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_emails SET active = TRUE, activation_token = $2, updated_at = now()
		WHERE activation_token = $1 AND NOT active
	`, token, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetPasswordByUser returns the password record of userID, or nil if none.
func (r *PostgresRepository) GetPasswordByUser(ctx context.Context, userID string) (*domain.Password, error) {
	if !validID(userID) {
		return nil, nil
	}
	return scanPassword(r.pool.QueryRow(ctx,
		`SELECT `+passwordColumns+` FROM user_passwords WHERE user_id = $1`, userID))
}

// GetPasswordByResetToken returns the password record with a pending reset token, or nil.
func (r *PostgresRepository) GetPasswordByResetToken(ctx context.Context, token string) (*domain.Password, error) {
	if !validID(token) {
		return nil, nil
	}
	return scanPassword(r.pool.QueryRow(ctx,
		`SELECT `+passwordColumns+` FROM user_passwords WHERE reset_token = $1`, token))
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, passwordID, hash, salt string) error {
	if !validID(passwordID) {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE user_passwords SET hash = $2, salt = $3, reset_token = NULL, updated_at = now()
		WHERE id = $1
	`, passwordID, hash, salt)
	return err
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, passwordID, token string, retryUntil time.Time, deliver func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE user_passwords SET reset_token = $2, reset_token_retry = $3, updated_at = now()
			WHERE id = $1
		`, passwordID, token, retryUntil); err != nil {
			return err
		}
		return deliver(ctx)
	})
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Ban, &u.BanReason, &u.CreatedAt, &u.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanPassword(row pgx.Row) (*domain.Password, error) {
	var p domain.Password
	err := row.Scan(&p.ID, &p.UserID, &p.Hash, &p.Salt, &p.ResetToken, &p.ResetTokenRetry, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func mapUnique(err error) error {
	constraint, ok := db.UniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case "users_username_key":
		return ErrUsernameTaken
	case "user_emails_address_key":
		return ErrEmailTaken
	}
	return err
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
