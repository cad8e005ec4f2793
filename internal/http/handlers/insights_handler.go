// Dashboard and insights HTTP handlers.
//
//   - GET  /risk/series
//   - GET  /risk/summary
//   - GET  /dashboard/insights
//   - GET  /dashboard/activity
//   - POST /feedback
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/risk"
	"github.com/healthsphere/go-health-backend/internal/services"
	"github.com/healthsphere/go-health-backend/internal/utils"
)

// RiskSeriesResponse is the trend chart payload.
type RiskSeriesResponse struct {
	Points []risk.Point `json:"points"`
	Trend  string       `json:"trend"`
}

// FeedbackRequest carries one piece of user feedback.
type FeedbackRequest struct {
	Text string `json:"text" binding:"required" example:"The trend chart is great"`
}

// RiskSeries godoc
// @ID          riskSeries
// @Summary     Risk score series
// @Description Returns the analyzed check-ins' risk scores in chronological
// @Description order, with the dead-banded trend classification.
// @Tags        Insights
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.RiskSeriesResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /risk/series [get]
func (h *Handlers) RiskSeries(c *gin.Context) {
	points, err := h.Insights.RiskSeries(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "loading series failed")
		return
	}
	ok(c, http.StatusOK, RiskSeriesResponse{Points: points, Trend: risk.Trend(points)})
}

// RiskSummary godoc
// @ID          riskSummary
// @Summary     Rule-based risk summary
// @Tags        Insights
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  risk.Summary
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /risk/summary [get]
func (h *Handlers) RiskSummary(c *gin.Context) {
	summary, err := h.Insights.Summary(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "loading summary failed")
		return
	}
	ok(c, http.StatusOK, summary)
}

// DashboardInsights godoc
// @ID          dashboardInsights
// @Summary     Dashboard insights
// @Description Wellness score, risk level and trend for the dashboard header.
// @Tags        Insights
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.HealthInsights
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /dashboard/insights [get]
func (h *Handlers) DashboardInsights(c *gin.Context) {
	insights, err := h.Insights.Insights(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "loading insights failed")
		return
	}
	ok(c, http.StatusOK, insights)
}

// DashboardActivity godoc
// @ID          dashboardActivity
// @Summary     Recent activity feed
// @Tags        Insights
// @Produce     json
// @Security    BearerAuth
// @Param       limit  query  int  false  "Maximum entries"  default(10)
// @Success     200  {array}   services.Activity
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /dashboard/activity [get]
func (h *Handlers) DashboardActivity(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 10)
	feed, err := h.Insights.RecentActivity(c.Request.Context(), userID(c), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "loading activity failed")
		return
	}
	ok(c, http.StatusOK, feed)
}

// SubmitFeedback godoc
// @ID          submitFeedback
// @Summary     Submit feedback
// @Tags        Insights
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.FeedbackRequest  true  "Feedback"
// @Success     201  {object}  domain.Feedback
// @Failure     400  {object}  handlers.ErrorResponse  "Empty feedback"
// @Router      /feedback [post]
func (h *Handlers) SubmitFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	fb, err := h.Insights.SubmitFeedback(c.Request.Context(), userID(c), req.Text)
	if errors.Is(err, services.ErrEmptyFeedback) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "storing feedback failed")
		return
	}
	ok(c, http.StatusCreated, fb)
}
