package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbm "townsquare/internal/models/db_models"
	"townsquare/internal/models/response_models"
	"townsquare/internal/services"
	"townsquare/pkg/utils"
)

type MockPaymentService struct {
	InitializeFunc func(ctx context.Context, in services.InitializePaymentInput) (*response_models.InitializePaymentResponse, error)
	VerifyFunc     func(ctx context.Context, reference string, requesterId uuid.UUID) (*dbm.Payment, error)
	RefundFunc     func(ctx context.Context, paymentId, requesterId uuid.UUID, amount *decimal.Decimal) (*dbm.Payment, error)
	WebhookFunc    func(ctx context.Context, signature string, body []byte) error
}

func (m *MockPaymentService) Initialize(ctx context.Context, in services.InitializePaymentInput) (*response_models.InitializePaymentResponse, error) {
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx, in)
	}
	return nil, utils.ErrDatabaseError
}

func (m *MockPaymentService) Verify(ctx context.Context, reference string) (*dbm.Payment, error) {
	return m.VerifyForUser(ctx, reference, uuid.Nil)
}

func (m *MockPaymentService) VerifyForUser(ctx context.Context, reference string, requesterId uuid.UUID) (*dbm.Payment, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, reference, requesterId)
	}
	return nil, utils.ErrNotFound
}

func (m *MockPaymentService) Refund(ctx context.Context, paymentId, requesterId uuid.UUID, amount *decimal.Decimal) (*dbm.Payment, error) {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, paymentId, requesterId, amount)
	}
	return nil, utils.ErrNotFound
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, signature string, body []byte) error {
	if m.WebhookFunc != nil {
		return m.WebhookFunc(ctx, signature, body)
	}
	return nil
}

func (m *MockPaymentService) GetPayment(ctx context.Context, paymentId, requesterId uuid.UUID) (*dbm.Payment, error) {
	return nil, utils.ErrNotFound
}

func (m *MockPaymentService) ListPayments(ctx context.Context, userId uuid.UUID, page, pageSize int) ([]dbm.Payment, int64, error) {
	return nil, 0, nil
}

func (m *MockPaymentService) ListOpenFaults(ctx context.Context) ([]dbm.ReconciliationFault, error) {
	return nil, nil
}

type MockCapacityService struct {
	services.CapacityService
	RSVPFunc func(ctx context.Context, eventId, userId uuid.UUID, status dbm.RSVPStatus, guests int) (*services.ReservationResult, error)
}

func (m *MockCapacityService) RSVP(ctx context.Context, eventId, userId uuid.UUID, status dbm.RSVPStatus, guests int) (*services.ReservationResult, error) {
	return m.RSVPFunc(ctx, eventId, userId, status, guests)
}

type MockBankAccountService struct {
	services.BankAccountService
	VerifyFunc func(ctx context.Context, accountId, requesterId uuid.UUID, accountNumber, bankCode string) (*dbm.BankAccount, error)
}

func (m *MockBankAccountService) Verify(ctx context.Context, accountId, requesterId uuid.UUID, accountNumber, bankCode string) (*dbm.BankAccount, error) {
	return m.VerifyFunc(ctx, accountId, requesterId, accountNumber, bankCode)
}

func setupRouter(userID string, register func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("trace_id", "trace-1")
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	register(r)
	return r
}

func do(r *gin.Engine, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, utils.APIResponse) {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp utils.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestInitializeHandler(t *testing.T) {
	user := uuid.New()
	booking := uuid.New()

	tests := []struct {
		name     string
		userID   string
		body     any
		service  *MockPaymentService
		wantCode int
		wantKind string
	}{
		{
			name:   "success",
			userID: user.String(),
			body:   map[string]any{"amount": "5000", "email": "ada@example.com", "type": "service-booking", "bookingId": booking.String()},
			service: &MockPaymentService{InitializeFunc: func(_ context.Context, in services.InitializePaymentInput) (*response_models.InitializePaymentResponse, error) {
				if in.UserID != user || in.Target != (dbm.BookingTarget{ID: booking}) || !in.Amount.Equal(decimal.NewFromInt(5000)) {
					return nil, fmt.Errorf("unexpected input %+v", in)
				}
				return &response_models.InitializePaymentResponse{Reference: "TSQ-1", AuthorizationURL: "https://checkout/x"}, nil
			}},
			wantCode: http.StatusOK,
		},
		{
			name:     "no user",
			body:     map[string]any{"amount": "5000", "email": "ada@example.com", "type": "other"},
			service:  &MockPaymentService{},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "bad email",
			userID:   user.String(),
			body:     map[string]any{"amount": "5000", "email": "nope", "type": "other"},
			service:  &MockPaymentService{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "two targets",
			userID:   user.String(),
			body:     map[string]any{"amount": "5000", "email": "ada@example.com", "type": "other", "bookingId": booking.String(), "eventId": uuid.NewString()},
			service:  &MockPaymentService{},
			wantCode: http.StatusBadRequest,
			wantKind: "ValidationError",
		},
		{
			name:   "already paid",
			userID: user.String(),
			body:   map[string]any{"amount": "5000", "email": "ada@example.com", "type": "service-booking", "bookingId": booking.String()},
			service: &MockPaymentService{InitializeFunc: func(context.Context, services.InitializePaymentInput) (*response_models.InitializePaymentResponse, error) {
				return nil, fmt.Errorf("%w: booking %s", utils.ErrAlreadyPaid, booking)
			}},
			wantCode: http.StatusBadRequest,
			wantKind: "AlreadyPaid",
		},
		{
			name:   "missing booking",
			userID: user.String(),
			body:   map[string]any{"amount": "5000", "email": "ada@example.com", "type": "service-booking", "bookingId": booking.String()},
			service: &MockPaymentService{InitializeFunc: func(context.Context, services.InitializePaymentInput) (*response_models.InitializePaymentResponse, error) {
				return nil, fmt.Errorf("%w: booking %s", utils.ErrNotFound, booking)
			}},
			wantCode: http.StatusNotFound,
			wantKind: "NotFound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewPaymentController(tt.service)
			r := setupRouter(tt.userID, func(r *gin.Engine) { r.POST("/payments/initialize", ctrl.Initialize) })

			w, resp := do(r, http.MethodPost, "/payments/initialize", tt.body, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if resp.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.wantKind)
			}
			if resp.TraceID != "trace-1" {
				t.Errorf("trace_id = %q", resp.TraceID)
			}
		})
	}
}

func TestVerifyHandlerChecksOwner(t *testing.T) {
	owner := uuid.New()
	ctrl := NewPaymentController(&MockPaymentService{VerifyFunc: func(_ context.Context, reference string, requesterId uuid.UUID) (*dbm.Payment, error) {
		if requesterId != owner {
			return nil, fmt.Errorf("%w: payment %s belongs to another user", utils.ErrForbidden, reference)
		}
		return &dbm.Payment{UserID: owner, Reference: reference, Status: dbm.PaymentStatusSuccess}, nil
	}})

	for user, want := range map[uuid.UUID]int{owner: http.StatusOK, uuid.New(): http.StatusForbidden} {
		r := setupRouter(user.String(), func(r *gin.Engine) { r.GET("/payments/verify/:reference", ctrl.Verify) })
		if w, _ := do(r, http.MethodGet, "/payments/verify/TSQ-1", nil, nil); w.Code != want {
			t.Errorf("user %s: status = %d, want %d", user, w.Code, want)
		}
	}
}

func TestVerifyHandlerGatewayError(t *testing.T) {
	ctrl := NewPaymentController(&MockPaymentService{VerifyFunc: func(context.Context, string, uuid.UUID) (*dbm.Payment, error) {
		return nil, fmt.Errorf("%w: verify returned 503: upstream said no", utils.ErrGateway)
	}})
	r := setupRouter(uuid.NewString(), func(r *gin.Engine) { r.GET("/payments/verify/:reference", ctrl.Verify) })

	w, resp := do(r, http.MethodGet, "/payments/verify/TSQ-1", nil, nil)
	if w.Code != http.StatusBadGateway || resp.Kind != "GatewayError" {
		t.Fatalf("got %d %q, want 502 GatewayError", w.Code, resp.Kind)
	}
}

func TestRefundHandler(t *testing.T) {
	owner := uuid.New()
	paymentID := uuid.New()

	tests := []struct {
		name     string
		path     string
		body     any
		err      error
		wantCode int
		wantKind string
	}{
		{name: "full refund", path: "/payments/" + paymentID.String() + "/refund", wantCode: http.StatusOK},
		{name: "partial refund", path: "/payments/" + paymentID.String() + "/refund", body: `{"amount":"1500.50"}`, wantCode: http.StatusOK},
		{name: "not owner", path: "/payments/" + paymentID.String() + "/refund", err: utils.ErrForbidden, wantCode: http.StatusForbidden, wantKind: "Forbidden"},
		{name: "not settled", path: "/payments/" + paymentID.String() + "/refund", err: utils.ErrInvalidState, wantCode: http.StatusBadRequest, wantKind: "InvalidState"},
		{name: "bad id", path: "/payments/42/refund", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewPaymentController(&MockPaymentService{RefundFunc: func(_ context.Context, id, requester uuid.UUID, amount *decimal.Decimal) (*dbm.Payment, error) {
				if id != paymentID || requester != owner {
					return nil, fmt.Errorf("unexpected ids %s %s", id, requester)
				}
				if tt.name == "partial refund" && (amount == nil || !amount.Equal(decimal.RequireFromString("1500.50"))) {
					return nil, fmt.Errorf("unexpected amount %v", amount)
				}
				if tt.err != nil {
					return nil, tt.err
				}
				return &dbm.Payment{Status: dbm.PaymentStatusRefunded}, nil
			}})
			r := setupRouter(owner.String(), func(r *gin.Engine) { r.POST("/payments/:id/refund", ctrl.Refund) })

			w, resp := do(r, http.MethodPost, tt.path, tt.body, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if resp.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.wantKind)
			}
		})
	}
}

func TestWebhookHandlerPassesRawBody(t *testing.T) {
	body := `{"event":"charge.success","data":{"reference":"TSQ-1"}}`
	var gotSig string
	var gotBody []byte
	ctrl := NewPaymentController(&MockPaymentService{WebhookFunc: func(_ context.Context, sig string, b []byte) error {
		gotSig, gotBody = sig, b
		return nil
	}})
	r := setupRouter("", func(r *gin.Engine) { r.POST("/payments/webhook", ctrl.HandleWebhook) })

	w, _ := do(r, http.MethodPost, "/payments/webhook", body, map[string]string{"x-paystack-signature": "abc123"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotSig != "abc123" || string(gotBody) != body {
		t.Errorf("service got sig=%q body=%q", gotSig, gotBody)
	}
}

func TestRSVPHandlerAtCapacity(t *testing.T) {
	eventID := uuid.New()
	ctrl := NewEventController(&MockCapacityService{RSVPFunc: func(_ context.Context, id, _ uuid.UUID, status dbm.RSVPStatus, guests int) (*services.ReservationResult, error) {
		if id != eventID || status != dbm.RSVPGoing || guests != 2 {
			return nil, fmt.Errorf("unexpected rsvp %s %s %d", id, status, guests)
		}
		return nil, fmt.Errorf("%w: event %s", utils.ErrAtCapacity, eventID)
	}})
	r := setupRouter(uuid.NewString(), func(r *gin.Engine) { r.POST("/events/:id/rsvp", ctrl.RSVP) })

	w, resp := do(r, http.MethodPost, "/events/"+eventID.String()+"/rsvp", map[string]any{"rsvpStatus": "going", "guestsCount": 2}, nil)
	if w.Code != http.StatusConflict || resp.Kind != "AtCapacity" {
		t.Fatalf("got %d %q, want 409 AtCapacity", w.Code, resp.Kind)
	}
	if resp.Message != "at capacity: event "+eventID.String() {
		t.Errorf("message = %q", resp.Message)
	}

	w, _ = do(r, http.MethodPost, "/events/"+eventID.String()+"/rsvp", map[string]any{"rsvpStatus": "sure"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status code = %d, want 400", w.Code)
	}
}

func TestBankAccountVerifyHandler(t *testing.T) {
	ctrl := NewBankAccountController(&MockBankAccountService{VerifyFunc: func(context.Context, uuid.UUID, uuid.UUID, string, string) (*dbm.BankAccount, error) {
		return nil, fmt.Errorf("%w: could not resolve account: %v", utils.ErrVerificationFailed, utils.ErrGatewayDeclined)
	}})
	r := setupRouter(uuid.NewString(), func(r *gin.Engine) { r.POST("/bank-accounts/:id/verify", ctrl.Verify) })

	w, resp := do(r, http.MethodPost, "/bank-accounts/"+uuid.NewString()+"/verify", map[string]any{"accountNumber": "0123456789", "bankCode": "058"}, nil)
	if w.Code != http.StatusUnprocessableEntity || resp.Kind != "VerificationFailed" {
		t.Fatalf("got %d %q, want 422 VerificationFailed", w.Code, resp.Kind)
	}
}
