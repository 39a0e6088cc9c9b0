package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/ownernet/internal/queue"
	mid "github.com/OFFIS-RIT/ownernet/internal/server/middleware"
	"github.com/OFFIS-RIT/ownernet/internal/session"
	"github.com/OFFIS-RIT/ownernet/internal/storage"
	"github.com/OFFIS-RIT/ownernet/internal/util"
	loaders3 "github.com/OFFIS-RIT/ownernet/pkg/loader/s3"
	"github.com/OFFIS-RIT/ownernet/pkg/logger"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance serving app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)
	return e
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &mid.App{}

	var s3Getter loaders3.ObjectGetter
	if storage.Configured() {
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		app.S3 = client
		s3Getter = client
	}

	if queue.Configured() {
		conn, err := queue.Init()
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", "err", err)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, queue.Queues); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}
		app.Queue = ch
	}

	client, err := storage.NewGraphClient()
	if err != nil {
		logger.Fatal("Failed to create graph client", "err", err)
	}

	var onLoaded func(session.Network)
	if app.Queue != nil {
		ch := app.Queue
		onLoaded = func(n session.Network) {
			if err := queue.PublishNetworkEvent(ch, queue.EventFromNetwork(n)); err != nil {
				logger.Error("[Server] Failed to publish network event", "id", n.ID, "err", err)
			}
		}
	}

	app.Sessions = session.NewManager(session.NewManagerParams{
		Client:        client,
		Loaders:       storage.NewLoaders(s3Getter),
		QueryParallel: util.GetEnvInt("QUERY_PARALLEL", 4),
		OnLoaded:      onLoaded,
	})
	defer app.Sessions.Close()

	e := New(app)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
