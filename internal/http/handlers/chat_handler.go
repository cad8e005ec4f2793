// Chat HTTP handlers.
//
//   - POST   /chat
//   - POST   /chat/regenerate
//   - GET    /chat/history
//   - DELETE /chat
//
// Chat accepts anonymous callers: without a bearer token the conversation is
// keyed to the shared anonymous identity and the personal-context toggles are
// rejected at send time.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/markup"
	"github.com/healthsphere/go-health-backend/internal/prefs"
	"github.com/healthsphere/go-health-backend/internal/services"
)

// ChatRequest is one outgoing chat message with its context toggles.
type ChatRequest struct {
	Message            string `json:"message" binding:"required" example:"How did I sleep this week?"`
	IncludeCheckins    bool   `json:"include_checkins"`
	IncludeAllCheckins bool   `json:"include_all_checkins"`
	IncludeProfile     bool   `json:"include_profile"`
}

// ChatReply is the assistant's answer, with the reply pre-rendered into
// display blocks so clients share one markup interpretation.
type ChatReply struct {
	Message          services.ChatMessage `json:"message"`
	Blocks           []markup.Block       `json:"blocks"`
	SuggestedActions []string             `json:"suggested_actions,omitempty"`
}

// ChatHistoryResponse is the stored conversation, oldest first.
type ChatHistoryResponse struct {
	Messages []services.ChatMessage `json:"messages"`
}

// chatIdentity resolves the conversation key for this request.
func chatIdentity(c *gin.Context) (identity string, authenticated bool) {
	if uid := userID(c); uid != "" {
		return uid, true
	}
	return prefs.AnonymousIdentity, false
}

// chatSession loads the caller's conversation session.
func (h *Handlers) chatSession(c *gin.Context) (*services.ChatSession, error) {
	identity, authenticated := chatIdentity(c)
	return h.Chat.NewSession(c.Request.Context(), identity, authenticated)
}

// toggles maps the request switches onto the session's toggle set.
func (r ChatRequest) toggles() services.ChatToggles {
	return services.ChatToggles{
		IncludeCheckins:    r.IncludeCheckins,
		IncludeAllCheckins: r.IncludeAllCheckins,
		IncludeProfile:     r.IncludeProfile,
	}
}

// sendOutcome maps a send result onto the response or an error envelope.
func sendOutcome(c *gin.Context, reply *services.ChatMessage, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrSignInRequired):
		fail(c, http.StatusUnauthorized, ErrCodeSignInRequired, err.Error())
	case errors.Is(err, services.ErrSendInFlight):
		fail(c, http.StatusConflict, ErrCodeSendInFlight, err.Error())
	case errors.Is(err, services.ErrNothingToRegenerate):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case err != nil:
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceDegraded, "assistant unavailable, try again shortly")
	default:
		ok(c, http.StatusOK, ChatReply{
			Message:          *reply,
			Blocks:           markup.Render(reply.Content),
			SuggestedActions: reply.SuggestedActions,
		})
	}
}

// SendChat godoc
// @ID          sendChat
// @Summary     Send a chat message
// @Description Sends one message to the health assistant. Context toggles
// @Description require a bearer token; anonymous conversations are cached
// @Description under a shared identity.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ChatRequest  true  "Message"
// @Success     200  {object}  handlers.ChatReply
// @Failure     400  {object}  handlers.ErrorResponse  "Empty message"
// @Failure     401  {object}  handlers.ErrorResponse  "Toggles need sign-in"
// @Failure     409  {object}  handlers.ErrorResponse  "Send already in flight"
// @Failure     503  {object}  handlers.ErrorResponse  "Assistant unavailable"
// @Router      /chat [post]
func (h *Handlers) SendChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	sess, err := h.chatSession(c)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not open chat session")
		return
	}
	sess.SetToggles(req.toggles())

	reply, err := sess.Send(c.Request.Context(), req.Message)
	sendOutcome(c, reply, err)
}

// RegenerateChat godoc
// @ID          regenerateChat
// @Summary     Regenerate the last answer
// @Description Re-sends the most recent user message, replacing the previous
// @Description answer without duplicating the question.
// @Tags        Chat
// @Produce     json
// @Success     200  {object}  handlers.ChatReply
// @Failure     400  {object}  handlers.ErrorResponse  "Nothing to regenerate"
// @Failure     503  {object}  handlers.ErrorResponse  "Assistant unavailable"
// @Router      /chat/regenerate [post]
func (h *Handlers) RegenerateChat(c *gin.Context) {
	sess, err := h.chatSession(c)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not open chat session")
		return
	}

	reply, err := sess.RegenerateLast(c.Request.Context())
	sendOutcome(c, reply, err)
}

// ChatHistory godoc
// @ID          chatHistory
// @Summary     Conversation history
// @Tags        Chat
// @Produce     json
// @Success     200  {object}  handlers.ChatHistoryResponse
// @Router      /chat/history [get]
func (h *Handlers) ChatHistory(c *gin.Context) {
	sess, err := h.chatSession(c)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load chat history")
		return
	}
	ok(c, http.StatusOK, ChatHistoryResponse{Messages: sess.Messages()})
}

// ClearChat godoc
// @ID          clearChat
// @Summary     Clear the conversation
// @Description Deletes the caller's conversation everywhere it is stored.
// @Tags        Chat
// @Produce     json
// @Success     204  "Cleared"
// @Router      /chat [delete]
func (h *Handlers) ClearChat(c *gin.Context) {
	sess, err := h.chatSession(c)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not open chat session")
		return
	}
	if err := sess.Clear(c.Request.Context()); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "clearing conversation failed")
		return
	}
	c.Status(http.StatusNoContent)
}
