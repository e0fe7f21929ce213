package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hfpolymers/rubber-ops/internal/config"
	"github.com/hfpolymers/rubber-ops/internal/database"
	"github.com/hfpolymers/rubber-ops/internal/logger"
	"github.com/hfpolymers/rubber-ops/internal/mailer"
	"github.com/hfpolymers/rubber-ops/internal/middleware"
	"github.com/hfpolymers/rubber-ops/internal/modules/auth"
	"github.com/hfpolymers/rubber-ops/internal/modules/barrel"
	"github.com/hfpolymers/rubber-ops/internal/modules/intake"
	"github.com/hfpolymers/rubber-ops/internal/modules/lab"
	"github.com/hfpolymers/rubber-ops/internal/modules/leave"
	"github.com/hfpolymers/rubber-ops/internal/modules/notification"
	"github.com/hfpolymers/rubber-ops/internal/modules/salary"
	"github.com/hfpolymers/rubber-ops/internal/modules/shift"
	"github.com/hfpolymers/rubber-ops/internal/modules/user"
	"github.com/hfpolymers/rubber-ops/internal/scheduler"
	"github.com/hfpolymers/rubber-ops/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "rubber-ops-api"

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(telemetry.Options{
		ServiceName: serviceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	}, log)

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("schema applied")
	}

	loc, err := time.LoadLocation(cfg.SchedulerTimezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.SchedulerTimezone).Msg("unknown timezone, using UTC")
		loc = time.UTC
	}

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(log))
	router.Use(chimw.Recoverer)
	router.Use(middleware.Metrics)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	// ── Identity & staff ────────────────────────────────────
	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, log)

	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo, mail, log, cfg.AppURL)

	authService := auth.NewService(userService, cfg.JWTSecret, cfg.TokenTTL)
	authn := middleware.Authenticate(authService.Verify)

	user.NewHandler(userService).RegisterRoutes(router, authn)
	auth.NewHandler(authService).RegisterRoutes(router, authn)

	// ── Notifications ───────────────────────────────────────
	channels := notification.NewChannels(cfg.NotifyChannels, notification.ChannelConfig{
		WebhookURL:   cfg.NotifyWebhookURL,
		WebhookToken: cfg.NotifyWebhookToken,
		Mailer:       mail,
		Emails:       recipientEmails(userService),
	}, log)
	notificationService := notification.NewService(notification.NewPostgresRepository(db), channels, log)
	notification.NewHandler(notificationService).RegisterRoutes(router, authn)

	// ── Payroll & attendance ────────────────────────────────
	salaryService := salary.NewService(salary.NewPostgresRepository(db), userService, cfg.BulkParallelism, log)
	salary.NewHandler(salaryService).RegisterRoutes(router, authn)

	shiftService := shift.NewService(shift.NewPostgresRepository(db), userService, cfg.BulkParallelism, loc, log)
	shift.NewHandler(shiftService).RegisterRoutes(router, authn)

	leaveService := leave.NewService(leave.NewPostgresRepository(db), notificationService, loc, log)
	leave.NewHandler(leaveService).RegisterRoutes(router, authn)

	// ── Latex collection ────────────────────────────────────
	barrelService := barrel.NewService(barrel.NewPostgresRepository(db), log)
	barrel.NewHandler(barrelService).RegisterRoutes(router, authn)

	intakeService := intake.NewService(intake.NewPostgresRepository(db), notificationService, loc, log)
	sessions := intake.NewSessions(intakeService, notificationService, intake.RealClock,
		cfg.IntakeAutoAdvance, cfg.IntakeSessionTTL, log)
	intake.NewHandler(intakeService, sessions).RegisterRoutes(router, authn)

	labService := lab.NewService(lab.NewPostgresRepository(db), notificationService, log)
	lab.NewHandler(labService).RegisterRoutes(router, authn)

	// ── Bootstrap & background jobs ─────────────────────────
	if err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Error().Err(err).Msg("admin seeding failed")
	}

	sched, err := scheduler.New(loc, scheduler.Jobs{
		MarkAbsent:    shiftService.MarkAbsent,
		ExpireInvites: userService.ExpireStaleInvites,
		SweepSessions: sessions.Sweep,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler setup failed")
	}
	sched.Start()

	// ── Start Server ────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("rubber operations API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
}

// recipientEmails resolves mail addresses for the email notification channel:
// the addressed user, or every active member of the addressed role.
func recipientEmails(users user.Service) notification.EmailLookup {
	return func(ctx context.Context, n *notification.Notification) ([]string, error) {
		if n.RecipientID != nil {
			u, err := users.GetUser(ctx, n.RecipientID.String())
			if err != nil {
				return nil, err
			}
			return []string{u.Email}, nil
		}
		members, err := users.ListStaff(ctx, user.Filter{Role: n.RecipientRole, Status: user.StatusActive})
		if err != nil {
			return nil, err
		}
		emails := make([]string, 0, len(members))
		for _, m := range members {
			emails = append(emails, m.Email)
		}
		return emails, nil
	}
}
