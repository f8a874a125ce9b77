package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaennil/slippymap/internal/layer"
	"github.com/jaennil/slippymap/internal/mapview"
	"github.com/jaennil/slippymap/pkg/logger"
)

// MapRunner runs fn on the goroutine owning the map.
type MapRunner interface {
	Do(ctx context.Context, fn func(v *mapview.MapView) error) error
	// Done is closed once the runner has stopped.
	Done() <-chan struct{}
}

type Handler struct {
	runner   MapRunner
	markers  *layer.PointLayer
	validate *validator.Validate
}

func NewHandler(runner MapRunner, markers *layer.PointLayer, validate *validator.Validate) *Handler {
	return &Handler{
		runner:   runner,
		markers:  markers,
		validate: validate,
	}
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	c.JSON(code, response{
		Success: code < 400,
		Message: message,
		Data:    data,
	})
}

func (h *Handler) RespondWithError(c *gin.Context, code int, err error) {
	if code >= 500 {
		l := requestLogger(c)
		l.Error("http_server error",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", code,
			"error", err,
		)
	}
	h.RespondWithJSON(c, code, err.Error(), nil)
}

// bind decodes and validates the request body into req.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		requestLogger(c).Warn("invalid request body", "path", c.Request.URL.Path, "error", err)
		h.RespondWithError(c, http.StatusBadRequest, ErrFailedToDecodeRequestBody)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		h.RespondWithError(c, http.StatusUnprocessableEntity, err)
		return false
	}
	return true
}

// run executes fn on the map goroutine and translates loop failures into
// responses. It reports whether fn ran successfully.
func (h *Handler) run(c *gin.Context, fn func(v *mapview.MapView) error) bool {
	err := h.runner.Do(c.Request.Context(), fn)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrMarkerNotFound):
		h.RespondWithError(c, http.StatusNotFound, err)
	case errors.Is(err, mapview.ErrLoopStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		h.RespondWithError(c, http.StatusServiceUnavailable, ErrMapUnavailable)
	default:
		requestLogger(c).Error("map operation failed", "error", err)
		h.RespondWithError(c, http.StatusInternalServerError, InternalServerError)
	}
	return false
}

func requestLogger(c *gin.Context) logger.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(logger.Logger); ok {
			return l
		}
	}
	return logger.FromContext(c.Request.Context())
}
