package api

import (
	"fmt"
	"net/http"

	"food-order-service/internal/apperr"

	"github.com/labstack/echo/v4"
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Unavailable:
		return http.StatusUnprocessableEntity
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusForbidden
	case apperr.Conflict, apperr.InvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error", "kind"}. Internal failures only expose
// their cause when debug is set.
func writeError(c echo.Context, err error, debug bool) error {
	kind := apperr.KindOf(err)
	body := map[string]string{"error": apperr.Message(err), "kind": string(kind)}
	if kind == apperr.Internal {
		body["error"] = "internal error"
		if debug {
			body["detail"] = err.Error()
		}
		logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(statusFor(kind), body)
}

// ErrorHandler gives framework errors (routing, bad tokens) the same body
// shape as workflow errors.
func ErrorHandler(debug bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he, ok := err.(*echo.HTTPError)
		if !ok {
			_ = writeError(c, err, debug)
			return
		}

		kind := "http_error"
		switch he.Code {
		case http.StatusUnauthorized:
			kind = "unauthenticated"
		case http.StatusNotFound:
			kind = string(apperr.NotFound)
		case http.StatusBadRequest:
			kind = string(apperr.InvalidInput)
		}
		body := map[string]string{"error": fmt.Sprint(he.Message), "kind": kind}
		if debug && he.Internal != nil {
			body["detail"] = he.Internal.Error()
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, body)
	}
}
