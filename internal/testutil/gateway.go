package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"townsquare/internal/gateway"
)

// MockGateway implements gateway.Client. Unset funcs answer with a successful
// initialize, an in-flight verify and a declined resolve.
type MockGateway struct {
	InitializeFunc func(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResult, error)
	VerifyFunc     func(ctx context.Context, providerReference string) (*gateway.VerifyResult, error)
	ResolveFunc    func(ctx context.Context, accountNumber, bankCode string) (*gateway.ResolvedAccount, error)

	VerifyCalls  atomic.Int32
	ResolveCalls atomic.Int32

	mu          sync.Mutex
	initialized []gateway.InitializeRequest
}

var _ gateway.Client = (*MockGateway)(nil)

func (m *MockGateway) InitializeTransaction(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResult, error) {
	m.mu.Lock()
	m.initialized = append(m.initialized, req)
	m.mu.Unlock()

	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx, req)
	}
	return &gateway.InitializeResult{
		AuthorizationURL:  "https://checkout.paystack.com/" + req.Reference,
		AccessCode:        "ac_" + req.Reference,
		ProviderReference: req.Reference,
	}, nil
}

func (m *MockGateway) VerifyTransaction(ctx context.Context, providerReference string) (*gateway.VerifyResult, error) {
	m.VerifyCalls.Add(1)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, providerReference)
	}
	return &gateway.VerifyResult{Outcome: gateway.OutcomeInFlight, RawStatus: "ongoing"}, nil
}

func (m *MockGateway) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*gateway.ResolvedAccount, error) {
	m.ResolveCalls.Add(1)
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, accountNumber, bankCode)
	}
	return nil, context.DeadlineExceeded
}

// Initialized returns every initialize request seen so far.
func (m *MockGateway) Initialized() []gateway.InitializeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gateway.InitializeRequest(nil), m.initialized...)
}

// Succeeds answers verify with a success for amountMinor at paidAt.
func Succeeds(amountMinor int64, paidAt time.Time) func(context.Context, string) (*gateway.VerifyResult, error) {
	return func(context.Context, string) (*gateway.VerifyResult, error) {
		return &gateway.VerifyResult{
			Outcome:          gateway.OutcomeSucceeded,
			AmountMinorUnits: amountMinor,
			Currency:         "NGN",
			PaidAt:           paidAt,
			RawStatus:        "success",
		}, nil
	}
}
