package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	dbm "townsquare/internal/models/db_models"
	"townsquare/internal/models/request_models"
	"townsquare/internal/services"
	"townsquare/pkg/utils"
)

type EventController struct {
	capacityService services.CapacityService
}

func NewEventController(capacityService services.CapacityService) *EventController {
	return &EventController{
		capacityService: capacityService,
	}
}

// GetEvent godoc
// @Summary Get an event with its current attendance
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Router /events/{id} [get]
func (e *EventController) GetEvent(c *gin.Context) {
	eventId, ok := pathID(c, "id")
	if !ok {
		return
	}

	event, err := e.capacityService.GetEvent(c.Request.Context(), eventId)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, event, "Event retrieved successfully")
}

// RSVP godoc
// @Summary RSVP to an event
// @Description Capacity-checked reservation. Paid events need a settled ticket before going.
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body request_models.RSVPRequest true "RSVP payload"
// @Success 200 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /events/{id}/rsvp [post]
func (e *EventController) RSVP(c *gin.Context) {
	var req request_models.RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	userId, ok := currentUser(c)
	if !ok {
		return
	}
	eventId, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := e.capacityService.RSVP(c.Request.Context(), eventId, userId, dbm.RSVPStatus(req.RSVPStatus), req.GuestsCount)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, res, "RSVP recorded")
}

// CancelRSVP godoc
// @Summary Withdraw an RSVP
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /events/{id}/rsvp [delete]
func (e *EventController) CancelRSVP(c *gin.Context) {
	userId, ok := currentUser(c)
	if !ok {
		return
	}
	eventId, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := e.capacityService.Release(c.Request.Context(), eventId, userId)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, res, "RSVP withdrawn")
}
