// Package api exposes the catalog pipeline over HTTP.
package api

import (
	"crypto/rand"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jhelttu/closet-go/internal/conf"
	"github.com/jhelttu/closet-go/internal/datastore"
	"github.com/jhelttu/closet-go/internal/errors"
	"github.com/jhelttu/closet-go/internal/logging"
	"github.com/jhelttu/closet-go/internal/observability"
	"github.com/jhelttu/closet-go/internal/pipeline"
	"github.com/jhelttu/closet-go/internal/recommend"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo        *echo.Echo
	Group       *echo.Group
	Pipeline    *pipeline.Pipeline
	DS          datastore.Interface
	Settings    *conf.Settings
	Recommender *recommend.Client // nil when no API key is configured
	Metrics     *observability.Metrics

	apiLogger *slog.Logger
}

// New creates a Controller and registers its routes on e.
func New(e *echo.Echo, p *pipeline.Pipeline, ds datastore.Interface, settings *conf.Settings,
	recommender *recommend.Client, metrics *observability.Metrics) *Controller {

	log := logging.ForService("api")
	if log == nil {
		log = slog.Default()
	}

	c := &Controller{
		Echo:        e,
		Pipeline:    p,
		DS:          ds,
		Settings:    settings,
		Recommender: recommender,
		Metrics:     metrics,
		apiLogger:   log,
	}

	e.Use(middleware.Recover())

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.POST("/garments", c.IngestGarment)
	c.Group.GET("/garments", c.ListGarments)
	c.Group.PATCH("/garments/:id", c.UpdateGarment)
	c.Group.DELETE("/garments/:id", c.DeleteGarment)
	c.Group.POST("/recommendations", c.GetRecommendations)
	c.Group.GET("/health", c.Health)

	if c.Metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.Metrics.Handler()))
	}
}

// ErrorResponse is the single structured error payload every operation
// resolves to on failure.
type ErrorResponse struct {
	Error         string `json:"error"`
	Kind          string `json:"kind"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// generateCorrelationID creates a short random identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError maps an error to its HTTP status and returns the structured
// response. The error kind is stable: it is the error category.
func (c *Controller) HandleError(ctx echo.Context, err error) error {
	code := statusForError(err)
	kind := string(errors.CategoryGeneric)
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		kind = enhanced.GetCategory()
	}

	resp := &ErrorResponse{
		Error:         err.Error(),
		Kind:          kind,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}

	c.apiLogger.Error("API error",
		"correlation_id", resp.CorrelationID,
		"kind", kind,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"error", err.Error())

	return ctx.JSON(code, resp)
}

// statusForError maps error categories to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryInvalidID),
		errors.IsCategory(err, errors.CategoryValidation),
		errors.IsCategory(err, errors.CategoryInvalidUpdate),
		errors.IsCategory(err, errors.CategoryImageDecode):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryIntegrity),
		errors.IsCategory(err, errors.CategoryPartialDelete):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
