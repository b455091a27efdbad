package fail

import (
	"github.com/cirruslabs/mocha/internal/failure"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
)

// Fail responds with the status code and the client-safe message of the
// error, logging the full error. Failed responses are never cached.
func Fail(c echo.Context, err error) error {
	status := failure.HTTPStatus(err)

	logger := zap.S().With(
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"status_code", status,
	)

	if status >= http.StatusInternalServerError {
		logger.Errorf("%v", err)
	} else {
		logger.Debugf("%v", err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")

	return c.String(status, failure.PublicMessage(err))
}
