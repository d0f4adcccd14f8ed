package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	aws_pkg "github.com/eventhub/backend/pkg/aws"
	"github.com/eventhub/backend/services/common/auth"
	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/common/logger"
	"github.com/eventhub/backend/services/common/metrics"
	commonmw "github.com/eventhub/backend/services/common/middleware"
	"github.com/eventhub/backend/services/marketplace-service/cache"
	"github.com/eventhub/backend/services/marketplace-service/controllers"
	"github.com/eventhub/backend/services/marketplace-service/database"
	"github.com/eventhub/backend/services/marketplace-service/middleware"
	"github.com/eventhub/backend/services/marketplace-service/repository"
	"github.com/eventhub/backend/services/marketplace-service/routes"
	"github.com/eventhub/backend/services/marketplace-service/sender"
	"github.com/eventhub/backend/services/marketplace-service/services"
)

const serviceName = "marketplace-service"

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		panic("config load failed: " + err.Error())
	}

	awsCfg, awsErr := aws_pkg.LoadAWSConfig(context.Background())

	// CloudWatch Logs (non-fatal)
	var cwWriter io.Writer
	if awsErr == nil && cfg.CloudWatchEnabled {
		if cw, err := aws_pkg.NewCloudWatchLogsClient(context.Background(), awsCfg, serviceName); err == nil && cw.IsEnabled() {
			cwWriter = cw
		}
	}

	log, err := logger.New(cfg.Env, cwWriter)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if awsErr != nil {
		log.Warn("AWS config load failed (non-fatal)", zap.Error(awsErr))
	}
	metrics.Register()

	// Database
	db, err := database.Connect(log, cfg.DB)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}

	// CloudWatch metrics (nil-safe)
	var metricsClient *aws_pkg.MetricsClient
	if awsErr == nil {
		metricsClient = aws_pkg.NewMetricsClient(awsCfg)
	}

	// Notification channels
	var sns aws_pkg.SNSPublisher
	if awsErr == nil {
		sns = aws_pkg.NewSNSClient(awsCfg)
	}
	pipeline := sender.NewPipeline(log, cfg.MailChannelTimeout, buildChannels(cfg, sns, log)...)
	log.Info("notification pipeline ready", zap.Strings("channels", pipeline.Channels()))

	var sms sender.SMSSender
	if tw, err := sender.NewTwilioSender(cfg.Twilio); err == nil {
		sms = tw
	} else {
		log.Info("consultation SMS disabled", zap.String("reason", err.Error()))
	}

	// Response cache and images
	responseCache := cache.New(cache.WithMaxEntries(cfg.CacheMaxEntries))
	var images services.ImageResolver
	if awsErr == nil && (cfg.ImageBucket != "" || cfg.ImageCDNDomain != "") {
		images = aws_pkg.NewImageURLResolver(awsCfg, cfg.ImageBucket, cfg.ImageCDNDomain, cfg.ImageURLExpiry)
	}

	// Dependency injection
	requestRepo := repository.NewRequestRepository(db)
	consultationRepo := repository.NewConsultationRepository(db)
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := services.NewNotificationService(notificationRepo, pipeline, metricsClient, log)
	requestService := services.NewRequestService(requestRepo, consultationRepo, userRepo, eventRepo,
		notificationService, cfg.OperatorEmail, metricsClient, log)
	consultationService := services.NewConsultationService(requestRepo, consultationRepo, sms,
		cfg.Twilio.DefaultRegion, metricsClient, log)
	marketplaceService := services.NewMarketplaceService(vendorRepo, eventRepo, responseCache, images, metricsClient, log)

	// Router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(commonmw.RequestLogger(log))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(commonmw.RateLimitMiddleware(cfg.RateLimit, cfg.RateLimit/4+1))
	r.Use(commonmw.Timeout(30 * time.Second))
	r.Use(commonmw.MetricsMiddleware(metricsClient, serviceName))
	r.Use(commonmw.PrometheusMiddleware())
	r.Use(apperrors.ErrorMiddleware())

	if cfg.GatewaySecret == "" {
		log.Info("gateway identity headers disabled; bearer tokens only")
	}
	authn := middleware.NewAuthenticator(auth.NewTokenParser(cfg.JWTSecret), middleware.WithGatewaySecret(cfg.GatewaySecret))
	routes.RegisterRoutes(r, authn, routes.Controllers{
		Requests:      controllers.NewRequestController(requestService, log),
		Consultations: controllers.NewConsultationController(consultationService, log),
		Marketplace:   controllers.NewMarketplaceController(marketplaceService, log),
		Notifications: controllers.NewNotificationController(notificationService, log),
	})

	// HTTP server
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info("Marketplace service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	if err := database.Close(db); err != nil {
		log.Error("Database close error", zap.Error(err))
	}

	log.Info("Marketplace service stopped gracefully")
}

// buildChannels returns the configured delivery channels in fallback order:
// direct relay, delegated function, platform topic. Unconfigured channels are
// left out.
func buildChannels(cfg *Config, sns aws_pkg.SNSPublisher, log *zap.Logger) []sender.Channel {
	var channels []sender.Channel
	skip := func(name string, err error) {
		log.Warn("notification channel disabled", zap.String("channel", name), zap.Error(err))
	}

	switch cfg.MailProvider {
	case "sendgrid":
		if sg, err := sender.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFromName, cfg.SMTP.From); err == nil {
			channels = append(channels, sg)
		} else {
			skip("sendgrid", err)
		}
	default:
		if smtp, err := sender.NewSMTPSender(cfg.SMTP); err == nil {
			channels = append(channels, smtp)
		} else {
			skip("smtp", err)
		}
	}

	if cfg.MailFunctionURL != "" {
		if fn, err := sender.NewFunctionSender(cfg.MailFunctionURL, cfg.MailFunctionKey); err == nil {
			channels = append(channels, fn)
		} else {
			skip("function", err)
		}
	}

	switch {
	case cfg.MailSNSTopicARN == "":
		skip("platform", fmt.Errorf("MAIL_SNS_TOPIC_ARN not set"))
	case sns == nil:
		skip("platform", fmt.Errorf("AWS config unavailable"))
	default:
		if ch, err := sender.NewSNSSender(sns, cfg.MailSNSTopicARN); err == nil {
			channels = append(channels, ch)
		} else {
			skip("platform", err)
		}
	}
	return channels
}
