package router

import (
	stdErrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"travelhub/internal/errors"
)

// RequestLogger logs one line per request through zap.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				if v.Error != nil {
					fields = append(fields, zap.Error(v.Error))
				}
				log.Error("request", fields...)
			case v.Status >= http.StatusBadRequest:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		},
	})
}

// ErrorHandler renders every error as {"error","code"} and logs server faults.
func ErrorHandler(e *echo.Echo, log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !stdErrors.As(err, &he) {
			he = echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
				Error: "internal server error",
				Code:  "INTERNAL_ERROR",
			}).SetInternal(err)
		}

		if he.Code >= http.StatusInternalServerError {
			cause := he.Internal
			if cause == nil {
				cause = err
			}
			log.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(cause),
			)
		}

		body, ok := he.Message.(errors.ErrorResponse)
		if !ok {
			body = errors.ErrorResponse{Error: http.StatusText(he.Code), Code: codeFor(he.Code)}
			if msg, isString := he.Message.(string); isString && he.Code < http.StatusInternalServerError {
				body.Error = msg
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, body)
		}
		if err != nil {
			e.Logger.Error(err)
		}
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "BODY_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "STORE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
