// Package handlers – wiring.
//
// Handlers are transport-thin: they validate input, call services, and
// translate results (including service sentinel errors) into HTTP responses.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/http/middleware"
	"github.com/healthsphere/go-health-backend/internal/services"
)

// Handlers groups the HTTP endpoints and the services they call.
type Handlers struct {
	Auth      *services.AuthService
	Checkin   *services.CheckinService
	Chat      *services.ChatService
	Upload    *services.UploadService
	Insights  *services.InsightsService
	Emergency *services.EmergencyService
}

// New constructs a Handlers instance bound to the given services.
func New(
	auth *services.AuthService,
	checkin *services.CheckinService,
	chat *services.ChatService,
	upload *services.UploadService,
	insights *services.InsightsService,
	emergency *services.EmergencyService,
) *Handlers {
	return &Handlers{
		Auth:      auth,
		Checkin:   checkin,
		Chat:      chat,
		Upload:    upload,
		Insights:  insights,
		Emergency: emergency,
	}
}

// userID returns the verified user id set by the auth middleware, or "" for
// anonymous requests.
func userID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}
