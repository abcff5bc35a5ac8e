// @title Conduit API
// @version 1.0
// @description Events, chat, location sharing and video calls for small groups.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"conduit/config"
	_ "conduit/docs"
	"conduit/internal/adapters/auth"
	"conduit/internal/adapters/email"
	"conduit/internal/adapters/push"
	deliveryhttp "conduit/internal/delivery/http"
	"conduit/internal/delivery/http/controllers"
	"conduit/internal/delivery/http/middleware"
	"conduit/internal/domain"
	"conduit/internal/metrics"
	"conduit/internal/realtime"
	"conduit/internal/repository/postgres"
	"conduit/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.AutoMigrate {
		if err := postgres.MigrateUp(cfg.DBUrl); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	// Repositories
	profileRepo := postgres.NewProfileRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	locationRepo := postgres.NewLocationRepository(db)
	callRepo := postgres.NewVideoCallRepository(db)
	agendaRepo := postgres.NewAgendaRepository(db)
	invitationRepo := postgres.NewEventInvitationRepository(db)
	pinRepo := postgres.NewPinRepository(db)
	tokenRepo := postgres.NewDeviceTokenRepository(db)

	// Adapters
	sender, err := newPushSender(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("push notifications", "mode", sender.Mode())
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		},
	}, logger)
	if err != nil {
		return err
	}
	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	issuer := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenExpiry)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	// Services
	timeout := cfg.ContextTimeout
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	notificationService := services.NewNotificationService(tokenRepo, sender, cfg.AppName, timeout, logger)
	authService := services.NewAuthService(profileRepo, hasher, issuer, emailService, cfg.AppName, cfg.AccessTokenExpiry, timeout, logger)
	userService := services.NewUserService(profileRepo, timeout)
	eventService := services.NewEventService(eventRepo, membershipRepo, callRepo, timeout, logger)
	messageService := services.NewMessageService(messageRepo, membershipRepo, profileRepo, notificationService, timeout, logger)
	locationService := services.NewLocationService(locationRepo, eventRepo, membershipRepo, timeout)
	agendaService := services.NewAgendaService(agendaRepo, eventRepo, membershipRepo, pinRepo, timeout)
	pinService := services.NewPinService(pinRepo, eventRepo, membershipRepo, timeout)
	invitationService := services.NewInvitationService(invitationRepo, eventRepo, membershipRepo, profileRepo, callRepo, emailService, cfg.AppName, timeout, logger)

	// Realtime
	hub := realtime.NewHub(messageService, logger)
	rooms := realtime.NewRooms(logger)
	upgrader := realtime.NewUpgrader(cfg.AllowedOrigins)
	videoService := services.NewVideoService(callRepo, membershipRepo, profileRepo, notificationService, rooms, timeout, logger)

	limiter := middleware.NewIPRateLimiter(cfg.AuthRateLimit)
	router := deliveryhttp.NewRouter(deliveryhttp.Controllers{
		Auth:          controllers.NewAuthController(logger, authService),
		Users:         controllers.NewUserController(logger, userService),
		Events:        controllers.NewEventController(logger, eventService),
		Messages:      controllers.NewMessageController(logger, messageService, hub, hub, upgrader),
		Location:      controllers.NewLocationController(logger, locationService),
		Video:         controllers.NewVideoController(logger, videoService, rooms, upgrader, cfg.STUNServer),
		Agenda:        controllers.NewAgendaController(logger, agendaService),
		Invitations:   controllers.NewInvitationController(logger, invitationService),
		Pins:          controllers.NewPinController(logger, pinService),
		Notifications: controllers.NewNotificationController(logger, notificationService),
	}, deliveryhttp.RouterOptions{
		Logger:         logger,
		Verifier:       verifier,
		AuthLimiter:    limiter,
		AllowedOrigins: cfg.AllowedOrigins,
		HealthCheck:    db.PingContext,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		metrics.NewDBCollector(db).Start(gctx, 15*time.Second)
		return nil
	})
	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newPushSender reads the FCM service account from JSON or file; without either
// it falls back to the legacy server key, or disables push.
func newPushSender(cfg *config.Config, logger *slog.Logger) (domain.PushSender, error) {
	fcm := push.FCMConfig{ServerKey: cfg.FCMServerKey}
	switch {
	case cfg.FCMServiceAccountJSON != "":
		fcm.ServiceAccountJSON = []byte(cfg.FCMServiceAccountJSON)
	case cfg.FCMServiceAccountFile != "":
		b, err := os.ReadFile(cfg.FCMServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read FCM service account: %w", err)
		}
		fcm.ServiceAccountJSON = b
	}
	return push.NewFCMSender(fcm, logger)
}
