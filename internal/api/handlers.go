package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/pkg/models"
)

const (
	serviceName = "seo-agents"
	version     = "1.0.0"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	db Pinger
}

// NewHandler creates a new Handler with required dependencies
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

// HandleHealth returns basic health status (always returns 200 OK)
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthStatus{
		Status:    "ok",
		Service:   serviceName,
		Version:   version,
		Timestamp: time.Now().UTC(),
	})
}

// HandleReady checks the database and returns 503 when it is unreachable.
func (h *Handler) HandleReady(c echo.Context) error {
	status := models.HealthStatus{
		Status:    "ok",
		Service:   serviceName,
		Version:   version,
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{"database": "ok"},
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Checks["database"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}

// writeError writes an RFC 7807 Problem Details JSON error response
func writeError(c echo.Context, status int, title, detail string) error {
	problem := models.ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	}
	body, err := json.Marshal(problem)
	if err != nil {
		return err
	}
	return c.Blob(status, "application/problem+json", body)
}

// ErrorHandler renders every error as Problem Details, mapping workflow
// error codes to HTTP statuses.
func (s *Server) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail, _ := he.Message.(string)
		_ = writeError(c, he.Code, http.StatusText(he.Code), detail)
		return
	}
	status := statusFor(apperrors.Code(err))
	if status >= http.StatusInternalServerError {
		s.Logger.Error("Request failed", "path", c.Request().URL.Path, "code", apperrors.Code(err), "error", err)
	}
	_ = writeError(c, status, http.StatusText(status), err.Error())
}

func statusFor(code string) int {
	switch code {
	case apperrors.CodeNotFound, apperrors.CodeRunNotFound:
		return http.StatusNotFound
	case apperrors.CodeRunFinalized, apperrors.CodeNoCheckpoint:
		return http.StatusConflict
	case apperrors.CodeConfigInvalid:
		return http.StatusBadRequest
	case apperrors.CodeProviderUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
