package request_models

type CreateBankAccountRequest struct {
	AccountNumber string `json:"accountNumber" binding:"required,numeric,min=10,max=20"`
	BankCode      string `json:"bankCode" binding:"required"`
	BankName      string `json:"bankName"`
	AccountName   string `json:"accountName"`
}

type VerifyBankAccountRequest struct {
	AccountNumber string `json:"accountNumber" binding:"required,numeric,min=10,max=20"`
	BankCode      string `json:"bankCode" binding:"required"`
}
