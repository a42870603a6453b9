package bookings

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

// Initiate handles POST /api/v1/bookings/initiate
func (c *Controller) Initiate(ctx *gin.Context) {
	var req InitiateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ValidationError(ctx, "Invalid reservation request", err.Error())
		return
	}

	outcome, err := c.service.Initiate(ctx.Request.Context(), &req)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	if outcome.RequiresVerification {
		response.Success(ctx, http.StatusAccepted, "Verification code sent", outcome)
		return
	}
	response.Success(ctx, http.StatusCreated, "Reservation confirmed", outcome)
}

// Verify handles POST /api/v1/bookings/verify
func (c *Controller) Verify(ctx *gin.Context) {
	var req VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ValidationError(ctx, "Invalid verification request", err.Error())
		return
	}

	ticket, err := c.service.Verify(ctx.Request.Context(), &req)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Success(ctx, http.StatusCreated, "Reservation confirmed", ticket)
}

// ResendCode handles POST /api/v1/bookings/resend-otp
func (c *Controller) ResendCode(ctx *gin.Context) {
	var req ResendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ValidationError(ctx, "Invalid resend request", err.Error())
		return
	}

	result, err := c.service.ResendCode(ctx.Request.Context(), &req)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Verification code sent", result)
}

// GetTicket handles GET /api/v1/bookings/:ticketId
func (c *Controller) GetTicket(ctx *gin.Context) {
	ticket, err := c.service.GetTicket(ctx.Request.Context(), ctx.Param("ticketId"))
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Ticket retrieved", ticket)
}
