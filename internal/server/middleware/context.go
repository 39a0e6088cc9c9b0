package middleware

import (
	"github.com/OFFIS-RIT/ownernet/internal/queue"
	"github.com/OFFIS-RIT/ownernet/internal/session"
	"github.com/OFFIS-RIT/ownernet/internal/storage"

	"github.com/labstack/echo/v4"
)

// App holds the process-wide dependencies handed to every request. Queue and
// S3 are nil when the broker or object storage is not configured.
type App struct {
	Sessions *session.Manager
	Queue    queue.Channel
	S3       storage.ObjectLister
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
