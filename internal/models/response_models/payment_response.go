package response_models

import (
	"github.com/google/uuid"
)

type InitializePaymentResponse struct {
	PaymentID        uuid.UUID `json:"paymentId"`
	AuthorizationURL string    `json:"authorizationUrl"`
	AccessCode       string    `json:"accessCode"`
	Reference        string    `json:"reference"`
}

type PaymentListResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}
