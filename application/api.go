package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/freitasmatheusrn/catalog-reconciler/configs"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/catalogsync"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/database/postgres"
	redisdb "github.com/freitasmatheusrn/catalog-reconciler/internal/database/redis"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/email"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/email/mailjet"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/email/smtp"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/generative"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/scheduler"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/shopify"
	"github.com/freitasmatheusrn/catalog-reconciler/pkg/auth"
	"github.com/freitasmatheusrn/catalog-reconciler/pkg/notification"
	"github.com/freitasmatheusrn/catalog-reconciler/pkg/notification/twilio"
	"github.com/freitasmatheusrn/catalog-reconciler/pkg/rest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Application struct {
	Config configs.Configs
	Logger *zap.Logger
	DB     *pgxpool.Pool
	Redis  *redisdb.Client

	service   *catalogsync.Service
	scheduler *scheduler.Scheduler
}

// Mount wires the batch service, the scheduler and the HTTP routes.
func (app *Application) Mount() (http.Handler, error) {
	generator, err := app.generator()
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}

	timeout := time.Duration(app.Config.HTTPTimeoutSeconds) * time.Second
	catalog := shopify.NewClient(shopify.Config{
		ShopDomain:  app.Config.ShopifyShopDomain,
		AccessToken: app.Config.ShopifyAccessToken,
		APIVersion:  app.Config.ShopifyAPIVersion,
		Timeout:     timeout,
	}, app.Logger)

	app.service = catalogsync.NewService(catalogsync.Deps{
		Catalog:   catalog,
		Lifecycle: postgres.NewLifecycleStore(app.DB),
		Snapshots: postgres.NewSnapshotStore(app.DB),
		Runs:      postgres.NewRunStore(app.DB),
		Locker:    redisdb.NewLocker(app.Redis.Client),
		Generator: generator,
	}, catalogsync.Config{
		EnrichmentQuery: app.Config.EnrichmentQuery,
		Pool: catalogsync.WorkerPoolConfig{
			NumWorkers: app.Config.AnalysisWorkers,
			QueueSize:  app.Config.AnalysisQueueSize,
		},
	}, app.Logger)

	if err := app.service.Start(); err != nil {
		return nil, fmt.Errorf("start worker pool: %w", err)
	}

	// Initialize and start scheduler for the nightly scan and AI refresh
	app.scheduler = scheduler.NewScheduler(app.service, app.Logger, app.email(), app.sms(), scheduler.Config{
		Recipients: scheduler.Recipients{
			Status:    app.Config.StatusRecipients,
			Attention: app.Config.AttentionRecipients,
			Alert:     app.Config.AlertRecipients,
		},
		AlertPhone: app.Config.AlertPhone,
	})
	if err := app.scheduler.Start(app.Config.CronExpression); err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = app.CustomErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:  true,
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {

			status := v.Status
			if v.Error != nil {
				var apiErr *rest.ApiErr
				var he *echo.HTTPError
				switch {
				case errors.As(v.Error, &apiErr):
					status = apiErr.Code
				case errors.As(v.Error, &he):
					status = he.Code
				}
			}

			fields := []zap.Field{
				zap.Duration("latency", v.Latency),
				zap.Int("status", status),
				zap.String("uri", v.URI),
				zap.String("method", v.Method),
			}
			if service, ok := c.Get("service").(string); ok {
				fields = append(fields, zap.String("service", service))
			}

			switch {
			case status >= 500:
				app.Logger.Error("request", append(fields, zap.Error(v.Error))...)
			case status >= 400:
				app.Logger.Warn("request", fields...)
			default:
				app.Logger.Info("request", fields...)
			}
			return nil
		},
	}))

	jwtConfig := echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.JWTCustomClaims)
		},
		SigningKey:    []byte(app.Config.JWTSecret),
		SigningMethod: echojwt.AlgorithmHS256,
		SuccessHandler: func(c echo.Context) {
			if service, apiErr := auth.GetService(c); apiErr == nil {
				c.Set("service", service)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return rest.NewUnauthorizedRequestError("token inválido")
		},
	}

	handler := catalogsync.NewHandler(app.service, 0)

	// Public routes
	e.GET("/health", app.Health)

	// Protected routes (service JWT required)
	protected := e.Group("")
	protected.Use(echojwt.WithConfig(jwtConfig))

	protected.POST("/feed/sap", handler.PushFeed)
	protected.POST("/feed/sap/import", handler.ImportFeed)
	protected.POST("/catalog/scan", handler.ScanCatalog)
	protected.POST("/products/analyze", handler.AnalyzeAll)
	protected.POST("/products/:id/analyze", handler.AnalyzeProduct)
	protected.GET("/products/:id/snapshot", handler.GetSnapshot)
	protected.GET("/runs/:id", handler.GetRun)
	protected.GET("/runs/:id/export", handler.ExportRun)

	return e, nil
}

// Health handles GET /health
func (app *Application) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{"database": "ok", "redis": "ok"}
	code := http.StatusOK
	if err := app.DB.Ping(ctx); err != nil {
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := app.Redis.HealthCheck(ctx); err != nil {
		status["redis"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

func (app *Application) generator() (generative.Generator, error) {
	switch app.Config.GenerativeProvider {
	case "bedrock":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return generative.NewBedrockFromEnv(ctx, app.Config.AWSRegion, app.Config.BedrockModelID, app.Logger)
	case "openai", "":
		return generative.NewOpenAI(generative.OpenAIConfig{
			APIKey:  app.Config.OpenAIAPIKey,
			BaseURL: app.Config.OpenAIBaseURL,
			Model:   app.Config.OpenAIModel,
			Timeout: time.Duration(app.Config.HTTPTimeoutSeconds) * time.Second,
		}, app.Logger)
	default:
		return nil, fmt.Errorf("unknown GENERATIVE_PROVIDER %q", app.Config.GenerativeProvider)
	}
}

func (app *Application) email() email.Email {
	if app.Config.EmailProvider == "mailjet" {
		return mailjet.New(app.Config.MailjetAPIKey, app.Config.MailjetAPISecret, app.Config.EmailFrom, app.Config.EmailFromName)
	}
	from := app.Config.EmailFrom
	if from == "" {
		from = app.Config.SMTPUser
	}
	return smtp.New(from, app.Config.SMTPHost, app.Config.SMTPUser, app.Config.SMTPPass, app.Config.SMTPPort)
}

func (app *Application) sms() notification.Notification {
	if app.Config.TwilioAccountSID == "" || app.Config.TwilioNumber == "" {
		app.Logger.Info("twilio not configured, sms alerts disabled")
		return nil
	}
	client := twilio.InitClient(app.Config.TwilioAccountSID, app.Config.TwilioAuthToken)
	return twilio.NewSMS(app.Config.TwilioNumber, app.Config.TwilioCountryCode, client)
}

// Run serves h until SIGINT or SIGTERM, then drains the scheduler and the
// worker pool.
func (app *Application) Run(h http.Handler) error {
	srv := &http.Server{
		Addr:         app.Config.WebServerPort,
		Handler:      h,
		WriteTimeout: time.Minute * 5,
		ReadTimeout:  time.Second * 30,
		IdleTimeout:  time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("server has started", zap.String("addr", app.Config.WebServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("http shutdown", zap.Error(err))
	}
	if app.scheduler != nil {
		select {
		case <-app.scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			app.Logger.Warn("scheduler job still running at shutdown")
		}
	}
	if app.service != nil {
		if err := app.service.Stop(); err != nil {
			app.Logger.Warn("worker pool stop", zap.Error(err))
		}
	}
	return nil
}
