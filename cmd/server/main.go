package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meisaku0/backend/internal/audit"
	auditrepo "github.com/meisaku0/backend/internal/audit/repository"
	"github.com/meisaku0/backend/internal/config"
	"github.com/meisaku0/backend/internal/db"
	"github.com/meisaku0/backend/internal/db/migrate"
	healthhandler "github.com/meisaku0/backend/internal/health/handler"
	"github.com/meisaku0/backend/internal/identity/guard"
	identityservice "github.com/meisaku0/backend/internal/identity/service"
	"github.com/meisaku0/backend/internal/logger"
	"github.com/meisaku0/backend/internal/mail"
	"github.com/meisaku0/backend/internal/platform/clock"
	"github.com/meisaku0/backend/internal/security"
	"github.com/meisaku0/backend/internal/server"
	"github.com/meisaku0/backend/internal/server/middleware"
	sessionrepo "github.com/meisaku0/backend/internal/session/repository"
	"github.com/meisaku0/backend/internal/telemetry"
	telemetryotel "github.com/meisaku0/backend/internal/telemetry/otel"
	"github.com/meisaku0/backend/internal/telemetry/producer"
	userrepo "github.com/meisaku0/backend/internal/user/repository"
	userservice "github.com/meisaku0/backend/internal/user/service"
)

const (
	serviceName     = "meisaku-auth"
	shutdownTimeout = 15 * time.Second
)

var (
	version = "dev"
	cli     struct {
		Version kong.VersionFlag
		Serve   ServeCmd `cmd:"" default:"1" help:"Start the HTTP API and the gRPC health server."`
	}
)

// ServeCmd runs the API. Everything except AutoMigrate comes from the environment via config.Load.
type ServeCmd struct {
	AutoMigrate bool `help:"Apply pending database migrations before serving." default:"false" env:"AUTO_MIGRATE"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("server"),
		kong.Vars{"version": version},
		kong.BindTo(ctx, (*context.Context)(nil)))
	cmd.FatalIfErrorf(cmd.Run())
}

// Run wires storage, security, telemetry and transports, then blocks until ctx is done.
func (s *ServeCmd) Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lg := logger.Setup(cfg.LogLevel, cfg.IsDevelopment())
	log.Logger = lg
	zerolog.DefaultContextLogger = &lg
	ctx = lg.WithContext(ctx)

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	metrics, err := telemetryotel.NewAuthMetrics(providers.MeterProvider)
	if err != nil {
		return err
	}

	brokers := cfg.KafkaBrokersList()
	eventsProducer := producer.NewKafkaProducer(brokers, cfg.AuthEventsTopic)
	mailProducer := producer.NewKafkaProducer(brokers, cfg.MailOutboxTopic)
	events := telemetry.Multi(telemetryotel.NewEventEmitter(providers.LoggerProvider), eventsProducer)

	var mailer mail.Mailer = mail.LogMailer{}
	if mailProducer != nil {
		mailer = mail.NewOutbox(mailProducer)
	}

	var (
		pool     *pgxpool.Pool
		users    userrepo.Repository
		sessions sessionStore
		auditLog audit.AuditLogger
	)
	if cfg.DatabaseURL != "" {
		if s.AutoMigrate {
			if err := migrate.Run(cfg.DatabaseURL, migrate.Up); err != nil {
				return err
			}
			lg.Info().Msg("migrations applied")
		}
		pool, err = db.Open(ctx, db.PoolConfig{DSN: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
		if err != nil {
			return err
		}
		defer pool.Close()
		users = userrepo.NewPostgresRepository(pool)
		sessions = sessionrepo.NewPostgresRepository(pool)
		auditLog = audit.NewLogger(auditrepo.NewPostgresRepository(pool), middleware.ClientIPFrom)
	} else {
		lg.Warn().Msg("DATABASE_URL is not set; using in-memory stores")
		users = userrepo.NewMemoryRepository()
		sessions = sessionrepo.NewMemoryRepository()
	}

	codec, err := security.NewTokenCodec([]byte(cfg.JWTSecret), clock.System{})
	if err != nil {
		return err
	}
	hasher := security.NewHasher(cfg.Argon2Params())

	auth := identityservice.NewAuthService(identityservice.Deps{
		Users:     users,
		Sessions:  sessions,
		Tokens:    codec,
		Passwords: hasher,
		Clock:     clock.System{},
		Audit:     auditLog,
		Events:    events,
		Metrics:   metrics,
	}, identityservice.Config{
		AccessTTL:           cfg.AccessTTL(),
		RotateRefreshTokens: cfg.RefreshRotation,
	})
	accounts := userservice.NewAccountService(userservice.Deps{
		Users:      users,
		Hasher:     hasher,
		Tokens:     codec,
		Mailer:     mailer,
		Audit:      auditLog,
		BaseAPIURL: cfg.BaseAPIURL,
	})

	var health *healthhandler.Server
	if pool != nil {
		health = healthhandler.NewServer(pool)
	} else {
		health = healthhandler.NewServer(nil)
	}

	router := server.NewRouter(server.Deps{
		Logger:   lg,
		Auth:     auth,
		Accounts: accounts,
		Guard:    guard.Deps{Tokens: codec, Users: users, Sessions: sessions},
		Metrics:  metrics,
		Health:   health,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       requestBase(ctx),
	}

	grpcSrv := server.NewGRPCServer(health)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		lg.Info().Str("addr", cfg.HTTPAddr).Str("version", version).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		lg.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC health server listening")
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		lg.Error().Err(serveErr).Msg("server failed")
	}

	lg.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("http shutdown")
	}
	grpcSrv.GracefulStop()

	// Let in-flight async emits finish before the emitters go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	closeProducer(lg, eventsProducer)
	closeProducer(lg, mailProducer)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("telemetry shutdown")
	}
	lg.Info().Msg("stopped")
	return serveErr
}

// requestBase keeps the request logger of ctx but not its cancellation, so a signal
// does not abort requests that Shutdown is still draining.
func requestBase(ctx context.Context) func(net.Listener) context.Context {
	base := context.WithoutCancel(ctx)
	return func(net.Listener) context.Context { return base }
}

type sessionStore interface {
	identityservice.SessionRepo
	guard.SessionFinder
}

func closeProducer(lg zerolog.Logger, p producer.Producer) {
	if err := p.Close(); err != nil {
		lg.Error().Err(err).Msg("kafka producer close")
	}
}
