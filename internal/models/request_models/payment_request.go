package request_models

import "github.com/shopspring/decimal"

type InitializePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Email       string          `json:"email" binding:"required,email"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	Type        string          `json:"type" binding:"required,oneof=service-booking bill-payment event-ticket other"`
	BookingId   *string         `json:"bookingId" binding:"omitempty,uuid"`
	BillId      *string         `json:"billId" binding:"omitempty,uuid"`
	EventId     *string         `json:"eventId" binding:"omitempty,uuid"`
	Description string          `json:"description"`
	Metadata    map[string]any  `json:"metadata"`
}

type RefundPaymentRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}
