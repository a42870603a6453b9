package cancellation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reservely/internal/shared/utils/response"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// Cancel handles POST /api/v1/bookings/cancel
func (c *Controller) Cancel(ctx *gin.Context) {
	var req CancelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ValidationError(ctx, "Invalid cancellation request", err.Error())
		return
	}

	result, err := c.service.Cancel(ctx.Request.Context(), &req)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Reservation cancelled", result)
}
