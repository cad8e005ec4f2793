// Emergency HTTP handler.
//
//   - GET /emergency/nearby
//
// This endpoint is public: someone who needs an ambulance should never be
// blocked by a missing token.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/utils"
)

// NearbyAmbulances godoc
// @ID          nearbyAmbulances
// @Summary     Nearby ambulance services
// @Description Returns ambulance services within the radius, closest first,
// @Description with straight-line distance and an ETA estimate.
// @Tags        Emergency
// @Produce     json
// @Param       lat     query  number  true   "Latitude"
// @Param       lon     query  number  true   "Longitude"
// @Param       radius  query  number  false  "Radius in km"  default(50)
// @Success     200  {array}   services.AmbulanceService
// @Failure     400  {object}  handlers.ErrorResponse  "Missing coordinates"
// @Router      /emergency/nearby [get]
func (h *Handlers) NearbyAmbulances(c *gin.Context) {
	if c.Query("lat") == "" || c.Query("lon") == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lat and lon are required")
		return
	}
	lat := utils.ParseFloatDefault(c.Query("lat"), 0)
	lon := utils.ParseFloatDefault(c.Query("lon"), 0)
	radius := utils.ParseFloatDefault(c.Query("radius"), 50)

	ok(c, http.StatusOK, h.Emergency.FindNearby(lat, lon, radius))
}
