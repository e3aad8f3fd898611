// seed inserts development accounts for local testing. Run with go run ./cmd/seed.
// Idempotent: accounts whose username already exists are skipped.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/meisaku0/backend/internal/config"
	"github.com/meisaku0/backend/internal/db"
	"github.com/meisaku0/backend/internal/logger"
	"github.com/meisaku0/backend/internal/security"
	"github.com/meisaku0/backend/internal/user/domain"
	userrepo "github.com/meisaku0/backend/internal/user/repository"
)

type account struct {
	username string
	email    string
	password string
}

var devAccounts = []account{
	{username: "alice", email: "alice@example.com", password: "secret1"},
	{username: "bob", email: "bob@example.com", password: "hunter22"},
}

var cli struct {
	Ban []string `help:"Usernames to mark as banned after seeding." placeholder:"USERNAME"`
}

func main() {
	cmd := kong.Parse(&cli, kong.Name("seed"), kong.Description("Insert development accounts."))
	cmd.FatalIfErrorf(run(context.Background()))
}

func run(ctx context.Context) error {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	lg := logger.Setup(cfg.LogLevel, cfg.IsDevelopment())

	pool, err := db.Open(ctx, db.PoolConfig{DSN: cfg.DatabaseURL, MaxConns: 2, MinConns: 1})
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	repo := userrepo.NewPostgresRepository(pool)
	hasher := security.NewHasher(cfg.Argon2Params())

	for _, a := range devAccounts {
		if err := seedAccount(ctx, lg, repo, hasher, a); err != nil {
			return err
		}
	}
	for _, name := range cli.Ban {
		if err := ban(ctx, pool, name); err != nil {
			return err
		}
		lg.Info().Str("username", name).Msg("banned")
	}

	for _, a := range devAccounts {
		fmt.Fprintf(os.Stdout, "Dev login: %s / %s\n", a.username, a.password)
	}
	return nil
}

func seedAccount(ctx context.Context, lg zerolog.Logger, repo *userrepo.PostgresRepository, hasher *security.Hasher, a account) error {
	existing, err := repo.GetByUsername(ctx, a.username)
	if err != nil {
		return fmt.Errorf("seed check %s: %w", a.username, err)
	}
	if existing != nil {
		lg.Info().Str("username", a.username).Msg("already seeded, skipping")
		return nil
	}

	hash, salt, err := hasher.Hash(a.password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	u := &domain.User{ID: uuid.NewString(), Username: a.username, CreatedAt: now, UpdatedAt: now}
	e := &domain.Email{
		ID:              uuid.NewString(),
		UserID:          u.ID,
		Address:         a.email,
		Active:          true,
		ActivationToken: uuid.NewString(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	p := &domain.Password{ID: uuid.NewString(), UserID: u.ID, Hash: hash, Salt: salt, CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateWithCredentials(ctx, u, e, p); err != nil {
		return fmt.Errorf("create %s: %w", a.username, err)
	}
	lg.Info().Str("username", a.username).Str("user_id", u.ID).Msg("seeded")
	return nil
}

func ban(ctx context.Context, pool *pgxpool.Pool, username string) error {
	tag, err := pool.Exec(ctx, `UPDATE users SET ban = true, ban_reason = 'Seeded ban', updated_at = now() WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("ban %s: %w", username, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ban %s: no such user", username)
	}
	return nil
}
