package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meisaku0/backend/internal/db"
	"github.com/meisaku0/backend/internal/session/domain"
)

const sessionColumns = `id::text, user_id::text, token, token_type, ip, os, device, browser, active, created_at, updated_at`

// PostgresRepository stores sessions in the user_sessions table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a session repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// pgxExecer is satisfied by both the pool and a transaction.
type pgxExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Insert persists s. The session must have ID and UserID set.
func (r *PostgresRepository) Insert(ctx context.Context, s *domain.Session) error {
	return insertSession(ctx, r.pool, s)
}

func insertSession(ctx context.Context, q pgxExecer, s *domain.Session) error {
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err := q.Exec(ctx, `
		INSERT INTO user_sessions (id, user_id, token, token_type, ip, os, device, browser, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, s.ID, s.UserID, s.Token, string(s.TokenType), s.IP, s.OS, s.Device, s.Browser, s.Active, created, updated)
	return err
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if !validID(id) {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM user_sessions WHERE id = $1`, id)
	return scanOne(row)
}

// FindActiveAccess returns the active access session with id, or nil.
func (r *PostgresRepository) FindActiveAccess(ctx context.Context, id string) (*domain.Session, error) {
	if !validID(id) {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM user_sessions
		WHERE id = $1 AND token_type = $2 AND active
	`, id, string(domain.TokenTypeAccess))
	return scanOne(row)
}

// FindByUserAndToken returns the most recent session of userID carrying token, or nil.
func (r *PostgresRepository) FindByUserAndToken(ctx context.Context, userID, token string, tokenType domain.TokenType) (*domain.Session, error) {
	if !validID(userID) {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM user_sessions
		WHERE user_id = $1 AND token = $2 AND token_type = $3
		ORDER BY active DESC, created_at DESC
		LIMIT 1
	`, userID, token, string(tokenType))
	return scanOne(row)
}

// Deactivate sets the session inactive. It reports false when no active row matched.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_sessions SET active = FALSE, updated_at = now()
		WHERE id = $1 AND active
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeactivateByUserAndToken deactivates the active session of userID carrying token.
func (r *PostgresRepository) DeactivateByUserAndToken(ctx context.Context, userID, token string, tokenType domain.TokenType) (bool, error) {
	if !validID(userID) {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_sessions SET active = FALSE, updated_at = now()
		WHERE user_id = $1 AND token = $2 AND token_type = $3 AND active
	`, userID, token, string(tokenType))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Supersede deactivates oldID and inserts next in one transaction. The old row is
// locked first so two concurrent refreshes of the same session cannot both succeed.
func (r *PostgresRepository) Supersede(ctx context.Context, oldID string, next *domain.Session) error {
	if !validID(oldID) {
		return ErrNotActive
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var active bool
		err := tx.QueryRow(ctx, `SELECT active FROM user_sessions WHERE id = $1 FOR UPDATE`, oldID).Scan(&active)
		if db.IsNoRows(err) {
			return ErrNotActive
		}
		if err != nil {
			return err
		}
		if !active {
			return ErrNotActive
		}
		if _, err := tx.Exec(ctx, `
			UPDATE user_sessions SET active = FALSE, updated_at = now() WHERE id = $1
		`, oldID); err != nil {
			return err
		}
		return insertSession(ctx, tx, next)
	})
}

// DeactivateAllByUser deactivates every session of userID and returns how many were active.
func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID string) (int64, error) {
	if !validID(userID) {
		return 0, nil
	}
	var n int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE user_sessions SET active = FALSE, updated_at = now()
			WHERE user_id = $1 AND active
		`, userID)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

// Paginate lists active sessions of userID matching f, newest first.
func (r *PostgresRepository) Paginate(ctx context.Context, userID string, f domain.Filter, page, perPage int) (*domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if !validID(userID) {
		return domain.NewPage(nil, 0, page, perPage), nil
	}

	const where = `
		WHERE user_id = $1 AND active
		  AND strpos(ip, $2) > 0 AND strpos(os, $3) > 0
		  AND strpos(device, $4) > 0 AND strpos(browser, $5) > 0`
	args := []any{userID, f.IP, f.OS, f.Device, f.Browser}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM user_sessions`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM user_sessions`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $6 OFFSET $7
	`, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.NewPage(items, total, page, perPage), nil
}

func scanOne(row pgx.Row) (*domain.Session, error) {
	s, err := scanSession(row)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var tokenType string
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &tokenType, &s.IP, &s.OS, &s.Device, &s.Browser,
		&s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.TokenType = domain.TokenType(tokenType)
	return &s, nil
}

// validID guards uuid columns: a malformed id cannot match any row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
