package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jhelttu/closet-go/internal/errors"
	"github.com/jhelttu/closet-go/internal/recommend"
)

// RecommendationRequest is the payload for the recommendation endpoint.
type RecommendationRequest struct {
	Occasion string `json:"occasion"`
	N        int    `json:"n"`
}

// GetRecommendations feeds the full catalog projection plus the requested
// occasion into the recommendation adapter.
func (c *Controller) GetRecommendations(ctx echo.Context) error {
	if c.Recommender == nil {
		c.Metrics.RecordRecommendation("unconfigured")
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "recommendation service is not configured",
		})
	}

	req := &RecommendationRequest{}
	if err := ctx.Bind(req); err != nil {
		return c.HandleError(ctx, errors.Newf("invalid request body").
			Component("api").
			Category(errors.CategoryValidation).
			Build())
	}
	if req.Occasion == "" {
		c.Metrics.RecordRecommendation("invalid")
		return c.HandleError(ctx, errors.Newf("missing required parameter: occasion").
			Component("api").
			Category(errors.CategoryValidation).
			Build())
	}
	if req.N <= 0 {
		req.N = recommend.DefaultCount
	}

	records, err := c.Pipeline.Records()
	if err != nil {
		c.Metrics.RecordRecommendation("error")
		return c.HandleError(ctx, err)
	}

	items := make([]recommend.Item, 0, len(records))
	for i := range records {
		g := &records[i]
		items = append(items, recommend.Item{
			ID:             strconv.FormatUint(uint64(g.ID), 10),
			SubCategory:    g.SubCategory,
			TypeOfClothing: g.Article,
			Gender:         g.Gender,
			BaseColour:     g.BaseColour,
			Season:         g.Season,
			Usage:          g.Usage,
		})
	}

	result, err := c.Recommender.Recommend(ctx.Request().Context(), items, req.Occasion, req.N)
	if err != nil {
		c.Metrics.RecordRecommendation("error")
		return c.HandleError(ctx, err)
	}

	c.Metrics.RecordRecommendation("success")
	return ctx.JSON(http.StatusOK, result)
}
