// Check-in HTTP handlers.
//
//   - GET    /checkin/session
//   - POST   /checkin/submit
//   - GET    /checkins
//   - GET    /checkin/flags/:field
//   - PUT    /checkin/flags/:field
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/domain"
	"github.com/healthsphere/go-health-backend/internal/repo"
	"github.com/healthsphere/go-health-backend/internal/risk"
	"github.com/healthsphere/go-health-backend/internal/services"
	"github.com/healthsphere/go-health-backend/internal/utils"
)

// CheckinSessionResponse is the fresh check-in screen payload.
type CheckinSessionResponse struct {
	State           services.CheckinState `json:"state"`
	Questions       []domain.Question     `json:"questions"`
	QuestionVersion string                `json:"question_version"`
	History         []domain.Checkin      `json:"history"`
	TodaysRecord    *domain.Checkin       `json:"todays_record,omitempty"`
	Summary         risk.Summary          `json:"summary"`
}

// SubmitCheckinRequest carries the answers for one daily submission.
type SubmitCheckinRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
	Notes   string            `json:"notes"`
}

// FlagRequest sets one persisted check-in preference flag.
type FlagRequest struct {
	Value bool `json:"value"`
}

// CheckinSessionStart godoc
// @ID          checkinSession
// @Summary     Open a check-in session
// @Description Loads the question set, the submitted-today record if any, and
// @Description recent history for the authenticated user.
// @Tags        Checkin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.CheckinSessionResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /checkin/session [get]
func (h *Handlers) CheckinSessionStart(c *gin.Context) {
	sess, err := h.Checkin.StartSession(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not open check-in session")
		return
	}
	questions, version := sess.Questions()
	ok(c, http.StatusOK, CheckinSessionResponse{
		State:           sess.State(),
		Questions:       questions,
		QuestionVersion: version,
		History:         sess.History(),
		TodaysRecord:    sess.TodaysRecord(),
		Summary:         sess.Summary(),
	})
}

// SubmitCheckin godoc
// @ID          submitCheckin
// @Summary     Submit today's check-in
// @Description Validates required answers, enforces the one-per-day rule and
// @Description stores the record with its narrative analysis.
// @Tags        Checkin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.SubmitCheckinRequest  true  "Answers"
// @Success     201  {object}  domain.Checkin
// @Failure     400  {object}  handlers.ErrorResponse  "Missing answer or notes too long"
// @Failure     409  {object}  handlers.ErrorResponse  "Already submitted today"
// @Router      /checkin/submit [post]
func (h *Handlers) SubmitCheckin(c *gin.Context) {
	var req SubmitCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	sess, err := h.Checkin.StartSession(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not open check-in session")
		return
	}
	if sess.State() == services.StateSubmitted {
		fail(c, http.StatusConflict, ErrCodeAlreadySubmitted, services.ErrAlreadySubmitted.Error())
		return
	}
	for id, answer := range req.Answers {
		if err := sess.Choose(id, answer); err != nil {
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
	}
	if err := sess.SetNotes(req.Notes); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	record, err := sess.Submit(c.Request.Context())
	switch {
	case errors.Is(err, services.ErrAlreadySubmitted):
		fail(c, http.StatusConflict, ErrCodeAlreadySubmitted, err.Error())
		return
	case errors.Is(err, services.ErrMissingAnswer):
		fail(c, http.StatusBadRequest, ErrCodeMissingAnswer, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "submission failed")
		return
	}
	ok(c, http.StatusCreated, record)
}

// ListCheckins godoc
// @ID          listCheckins
// @Summary     List check-ins
// @Description Returns the user's check-ins, newest first. Supports weak ETag
// @Description revalidation via If-None-Match.
// @Tags        Checkin
// @Produce     json
// @Security    BearerAuth
// @Param       limit  query  int  false  "Maximum records"  default(30)
// @Success     200  {array}   domain.Checkin
// @Success     304  "Not modified"
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /checkins [get]
func (h *Handlers) ListCheckins(c *gin.Context) {
	uid := userID(c)
	limit := utils.AtoiDefault(c.Query("limit"), 30)

	count, maxUpdated, err := repo.CheckinStats(c.Request.Context(), h.Checkin.DB, uid)
	if err == nil {
		etag := fmt.Sprintf(`W/"checkins-%d-0"`, count)
		if maxUpdated != nil {
			etag = fmt.Sprintf(`W/"checkins-%d-%d"`, count, maxUpdated.UnixNano())
		}
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	records, err := repo.ListCheckins(c.Request.Context(), h.Checkin.DB, uid, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "listing check-ins failed")
		return
	}
	ok(c, http.StatusOK, records)
}

// GetCheckinFlag godoc
// @ID          getCheckinFlag
// @Summary     Read a check-in preference flag
// @Tags        Checkin
// @Produce     json
// @Security    BearerAuth
// @Param       field  path  string  true  "Flag name"
// @Success     200  {object}  handlers.FlagRequest
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /checkin/flags/{field} [get]
func (h *Handlers) GetCheckinFlag(c *gin.Context) {
	value, err := h.Checkin.Prefs.GetBool(c.Request.Context(), "checkin", userID(c), c.Param("field"), false)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "reading flag failed")
		return
	}
	ok(c, http.StatusOK, FlagRequest{Value: value})
}

// SetCheckinFlag godoc
// @ID          setCheckinFlag
// @Summary     Set a check-in preference flag
// @Tags        Checkin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       field  path  string               true  "Flag name"
// @Param       body   body  handlers.FlagRequest  true  "Flag value"
// @Success     200  {object}  handlers.FlagRequest
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /checkin/flags/{field} [put]
func (h *Handlers) SetCheckinFlag(c *gin.Context) {
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.Checkin.Prefs.SetBool(c.Request.Context(), "checkin", userID(c), c.Param("field"), req.Value); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "storing flag failed")
		return
	}
	ok(c, http.StatusOK, req)
}
