package application

import (
	"errors"
	"net/http"

	"github.com/freitasmatheusrn/catalog-reconciler/pkg/rest"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (a *Application) CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *rest.ApiErr
	var he *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
		if len(apiErr.Causes) > 0 {
			a.Logger.Debug("request rejected",
				zap.Int("code", apiErr.Code),
				zap.String("message", apiErr.Message),
				zap.Any("causes", apiErr.Causes),
			)
		}
	case errors.As(err, &he):
		message := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
		apiErr = &rest.ApiErr{
			Message: message,
			Err:     http.StatusText(he.Code),
			Code:    he.Code,
		}
	default:
		a.Logger.Error("unhandled error", zap.Error(err), zap.String("uri", c.Request().RequestURI))
		apiErr = rest.NewInternalServerError("Erro interno do servidor")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Code)
		return
	}
	_ = c.JSON(apiErr.Code, apiErr)
}
