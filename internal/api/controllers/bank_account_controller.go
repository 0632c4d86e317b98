package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"townsquare/internal/models/request_models"
	"townsquare/internal/services"
	"townsquare/pkg/utils"
)

type BankAccountController struct {
	bankAccountService services.BankAccountService
}

func NewBankAccountController(bankAccountService services.BankAccountService) *BankAccountController {
	return &BankAccountController{
		bankAccountService: bankAccountService,
	}
}

// Create godoc
// @Summary Add a payout bank account
// @Description Resolves the holder name with the gateway when possible; otherwise the supplied name is stored unverified
// @Tags BankAccounts
// @Accept json
// @Produce json
// @Param request body request_models.CreateBankAccountRequest true "Bank account payload"
// @Success 200 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bank-accounts [post]
func (b *BankAccountController) Create(c *gin.Context) {
	var req request_models.CreateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	userId, ok := currentUser(c)
	if !ok {
		return
	}

	account, err := b.bankAccountService.Create(c.Request.Context(), services.CreateBankAccountInput{
		UserID:        userId,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		BankName:      req.BankName,
		AccountName:   req.AccountName,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, account, "Bank account added successfully")
}

// List godoc
// @Summary List the caller's bank accounts
// @Tags BankAccounts
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bank-accounts [get]
func (b *BankAccountController) List(c *gin.Context) {
	userId, ok := currentUser(c)
	if !ok {
		return
	}

	accounts, err := b.bankAccountService.List(c.Request.Context(), userId)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, accounts, "Bank accounts retrieved successfully")
}

// Resolve godoc
// @Summary Resolve an account holder name
// @Tags BankAccounts
// @Produce json
// @Param accountNumber query string true "Account number"
// @Param bankCode query string true "Bank code"
// @Success 200 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bank-accounts/resolve [get]
func (b *BankAccountController) Resolve(c *gin.Context) {
	resolved, err := b.bankAccountService.Resolve(c.Request.Context(), c.Query("accountNumber"), c.Query("bankCode"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, resolved, "Account resolved successfully")
}

// Verify godoc
// @Summary Re-verify a bank account with the gateway
// @Tags BankAccounts
// @Accept json
// @Produce json
// @Param id path string true "Bank account ID"
// @Param request body request_models.VerifyBankAccountRequest true "Account details"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bank-accounts/{id}/verify [post]
func (b *BankAccountController) Verify(c *gin.Context) {
	var req request_models.VerifyBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	userId, ok := currentUser(c)
	if !ok {
		return
	}
	accountId, ok := pathID(c, "id")
	if !ok {
		return
	}

	account, err := b.bankAccountService.Verify(c.Request.Context(), accountId, userId, req.AccountNumber, req.BankCode)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, account, "Bank account verified successfully")
}

// Remove godoc
// @Summary Remove a bank account
// @Tags BankAccounts
// @Produce json
// @Param id path string true "Bank account ID"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bank-accounts/{id} [delete]
func (b *BankAccountController) Remove(c *gin.Context) {
	userId, ok := currentUser(c)
	if !ok {
		return
	}
	accountId, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := b.bankAccountService.Remove(c.Request.Context(), accountId, userId); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Bank account removed successfully")
}

// SetDefault godoc
// @Summary Make a bank account the default payout account
// @Tags BankAccounts
// @Produce json
// @Param id path string true "Bank account ID"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bank-accounts/{id}/default [put]
func (b *BankAccountController) SetDefault(c *gin.Context) {
	userId, ok := currentUser(c)
	if !ok {
		return
	}
	accountId, ok := pathID(c, "id")
	if !ok {
		return
	}

	account, err := b.bankAccountService.SetDefault(c.Request.Context(), accountId, userId)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, account, "Default bank account updated")
}
