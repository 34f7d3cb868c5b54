package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tdminh/marketplace/internal/apperr"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func errorResponse(c echo.Context, code int, err error) error {
	return c.JSON(code, Response{
		Status:  "error",
		Message: err.Error(),
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// httpError maps the business error taxonomy onto HTTP statuses. Every
// service failure has already been rolled back by the time it gets here.
func httpError(err error) *echo.HTTPError {
	msg := map[string]any{"error": err.Error()}
	if id, ok := apperr.ProductID(err); ok {
		msg["product_id"] = id
	}

	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrProductUnavailable),
		errors.Is(err, apperr.ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	case errors.Is(err, apperr.ErrBuyerNotFound),
		errors.Is(err, apperr.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, msg)
	case errors.Is(err, apperr.ErrLockTimeout),
		errors.Is(err, apperr.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, msg)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
