package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/config"
	"course-ledger-service/internal/infra/memory"
	"course-ledger-service/internal/infra/postgres"
	infraredis "course-ledger-service/internal/infra/redis"
	transport "course-ledger-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the course ledger server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends groups the stores and collaborators picked from config.
type backends struct {
	courses      app.CourseStore
	progress     app.ProgressStore
	audit        app.AuditLogger
	certificates app.CertificateIssuer
	achievements app.AchievementChecker
	closers      []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// buildBackends prefers Postgres for durable records and Redis for caching,
// progress and achievements, falling back to memory for anything unconfigured.
func buildBackends(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*backends, error) {
	b := &backends{
		courses:      memory.NewCourseStore(),
		progress:     memory.NewProgressStore(),
		audit:        memory.NewAuditLog(),
		certificates: memory.NewCertificateIssuer(),
		achievements: memory.NewAchievementTracker(),
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.courses = postgres.NewCourseStore(pool)
		b.progress = postgres.NewProgressStore(pool)
		b.audit = postgres.NewAuditLogger(pool)
		b.certificates = postgres.NewCertificateIssuer(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Course.CacheTTL, 5*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.courses = infraredis.NewCourseCache(client, b.courses, cacheTTL, log)
		if cfg.Postgres.URL == "" {
			b.progress = infraredis.NewProgressStore(client)
		}
		b.achievements = infraredis.NewAchievementChecker(client, log)
	} else {
		b.courses = memory.NewCourseCache(b.courses, cacheTTL)
	}
	return b, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := buildBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	feed := app.NewProgressFeed()
	lifecycle := app.NewCourseLifecycle(b.courses, b.audit,
		app.WithLifecycleLogger(log),
		app.WithLifecycleRetries(cfg.Ledger.MaxCommitRetries))
	ledger := app.NewProgressLedger(app.LedgerDeps{
		Courses:      b.courses,
		Progress:     b.progress,
		Certificates: b.certificates,
		Achievements: b.achievements,
		Audit:        b.audit,
		Feed:         feed,
		Log:          log,
	}, app.LedgerOptions{
		TotalCourseXP:    cfg.Ledger.TotalCourseXP,
		MaxCommitRetries: cfg.Ledger.MaxCommitRetries,
	})

	mux := http.NewServeMux()
	transport.NewHandler(lifecycle, ledger, log).Register(mux)
	mux.HandleFunc("GET /ws/progress", transport.NewWSHandler(feed, log).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting course ledger service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
