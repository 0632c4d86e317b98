package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	dbm "townsquare/internal/models/db_models"
	"townsquare/internal/models/request_models"
	"townsquare/internal/models/response_models"
	"townsquare/internal/services"
	"townsquare/pkg/utils"
)

type PaymentController struct {
	paymentService services.PaymentService
}

func NewPaymentController(paymentService services.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
	}
}

// currentUser reads the id set by JWTAuthMiddleware.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userId, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "user_id is required")
		return uuid.Nil, false
	}
	return userId, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// Initialize godoc
// @Summary Initialize a payment
// @Description Creates a pending payment and returns the gateway authorization handle
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.InitializePaymentRequest true "Initialize Payment Request"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/initialize [post]
func (p *PaymentController) Initialize(c *gin.Context) {
	var request request_models.InitializePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userId, ok := currentUser(c)
	if !ok {
		return
	}

	target, err := targetOf(request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	res, err := p.paymentService.Initialize(c.Request.Context(), services.InitializePaymentInput{
		UserID:      userId,
		Email:       request.Email,
		Amount:      request.Amount,
		Currency:    request.Currency,
		Type:        dbm.PaymentType(request.Type),
		Target:      target,
		Description: request.Description,
		Metadata:    request.Metadata,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, res, "Payment initialized successfully")
}

// targetOf accepts at most one of bookingId, billId and eventId.
func targetOf(request request_models.InitializePaymentRequest) (dbm.PaymentTarget, error) {
	var targets []dbm.PaymentTarget
	if request.BookingId != nil {
		targets = append(targets, dbm.BookingTarget{ID: uuid.MustParse(*request.BookingId)})
	}
	if request.BillId != nil {
		targets = append(targets, dbm.BillTarget{ID: uuid.MustParse(*request.BillId)})
	}
	if request.EventId != nil {
		targets = append(targets, dbm.EventTarget{ID: uuid.MustParse(*request.EventId)})
	}

	switch len(targets) {
	case 0:
		return dbm.NoTarget{}, nil
	case 1:
		return targets[0], nil
	default:
		return nil, fmt.Errorf("%w: only one of bookingId, billId or eventId may be set", utils.ErrValidation)
	}
}

// Verify godoc
// @Summary Verify a payment
// @Description Confirms the payment outcome with the gateway. Safe to call repeatedly.
// @Tags Payments
// @Produce json
// @Param reference path string true "Payment reference"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/verify/{reference} [get]
func (p *PaymentController) Verify(c *gin.Context) {
	userId, ok := currentUser(c)
	if !ok {
		return
	}

	payment, err := p.paymentService.VerifyForUser(c.Request.Context(), c.Param("reference"), userId)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, payment, "Payment is "+string(payment.Status))
}

// Refund godoc
// @Summary Refund a payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param request body request_models.RefundPaymentRequest false "Refund Payment Request"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/{id}/refund [post]
func (p *PaymentController) Refund(c *gin.Context) {
	var request request_models.RefundPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}

	userId, ok := currentUser(c)
	if !ok {
		return
	}
	paymentId, ok := pathID(c, "id")
	if !ok {
		return
	}

	payment, err := p.paymentService.Refund(c.Request.Context(), paymentId, userId, request.Amount)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, payment, "Payment refunded successfully")
}

// GetPayment godoc
// @Summary Get a payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/{id} [get]
func (p *PaymentController) GetPayment(c *gin.Context) {
	userId, ok := currentUser(c)
	if !ok {
		return
	}
	paymentId, ok := pathID(c, "id")
	if !ok {
		return
	}

	payment, err := p.paymentService.GetPayment(c.Request.Context(), paymentId, userId)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, payment, "Payment retrieved successfully")
}

// ListPayments godoc
// @Summary List the caller's payments
// @Tags Payments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments [get]
func (p *PaymentController) ListPayments(c *gin.Context) {
	userId, ok := currentUser(c)
	if !ok {
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid page")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid pageSize")
		return
	}

	payments, total, err := p.paymentService.ListPayments(c.Request.Context(), userId, page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.PaymentListResponse{
		Items:    payments,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, "Payments retrieved successfully")
}

// HandleWebhook godoc
// @Summary Paystack webhook
// @Description Receives signed settlement callbacks. The reference is re-verified with the gateway.
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /payments/webhook [post]
func (p *PaymentController) HandleWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Unreadable body")
		return
	}

	if err := p.paymentService.HandleWebhook(c.Request.Context(), c.GetHeader("x-paystack-signature"), body); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Webhook processed")
}

// ListFaults godoc
// @Summary List unresolved reconciliation faults
// @Description Settled payments whose booking or seat could not be updated
// @Tags Admin
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/reconciliation-faults [get]
func (p *PaymentController) ListFaults(c *gin.Context) {
	faults, err := p.paymentService.ListOpenFaults(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, faults, "Reconciliation faults retrieved successfully")
}
