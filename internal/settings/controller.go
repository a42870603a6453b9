package settings

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reservely/internal/shared/utils/response"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetSettings handles GET /api/v1/settings
func (c *Controller) GetSettings(ctx *gin.Context) {
	settings, err := c.service.GetSettings(ctx.Request.Context())
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Settings retrieved", settings)
}

// GetAvailability handles GET /api/v1/settings/availability
func (c *Controller) GetAvailability(ctx *gin.Context) {
	summary, err := c.service.GetAvailability(ctx.Request.Context(), time.Now())
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Availability computed", summary)
}
