// Package gateway is the contract between the payment core and the external
// payment processor. Implementations return errors wrapping utils.ErrGateway
// when the processor could not be reached or answered with a server fault, and
// utils.ErrGatewayDeclined when it actively rejected the request.
package gateway

import (
	"context"
	"time"
)

type InitializeRequest struct {
	Email            string
	AmountMinorUnits int64
	Currency         string
	Reference        string
	Metadata         map[string]any
	CallbackURL      string
}

type InitializeResult struct {
	AuthorizationURL  string
	AccessCode        string
	ProviderReference string
}

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeInFlight  Outcome = "in_flight"
)

type VerifyResult struct {
	Outcome          Outcome
	AmountMinorUnits int64
	Currency         string
	PaidAt           time.Time
	RawStatus        string
	GatewayResponse  string
}

func (v *VerifyResult) Succeeded() bool { return v.Outcome == OutcomeSucceeded }

type ResolvedAccount struct {
	AccountName   string
	AccountNumber string
}

type Client interface {
	InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	VerifyTransaction(ctx context.Context, providerReference string) (*VerifyResult, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error)
}
