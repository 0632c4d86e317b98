package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"townsquare/internal/gateway"
	"townsquare/pkg/utils"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{SecretKey: "sk_test_123", BaseURL: srv.URL, Timeout: timeout})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestInitializeTransaction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("Authorization = %q", got)
		}
		var body initializeBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Amount != 500000 || body.Reference != "PAY-1" || body.Currency != "NGN" {
			t.Errorf("unexpected body %+v", body)
		}
		w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"PAY-1"}}`))
	}, time.Second)

	res, err := c.InitializeTransaction(context.Background(), gateway.InitializeRequest{
		Email:            "ada@example.com",
		AmountMinorUnits: 500000,
		Currency:         "NGN",
		Reference:        "PAY-1",
	})
	if err != nil {
		t.Fatalf("InitializeTransaction() error = %v", err)
	}
	if res.AuthorizationURL != "https://checkout.paystack.com/abc" || res.AccessCode != "abc" || res.ProviderReference != "PAY-1" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestVerifyTransactionOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    gateway.Outcome
		wantPay bool
	}{
		{
			name:    "success",
			body:    `{"status":true,"data":{"status":"success","reference":"PAY-1","amount":500000,"currency":"NGN","paid_at":"2026-10-19T09:15:00.000Z"}}`,
			want:    gateway.OutcomeSucceeded,
			wantPay: true,
		},
		{
			name: "failed",
			body: `{"status":true,"data":{"status":"failed","reference":"PAY-1","amount":500000,"currency":"NGN","gateway_response":"Declined"}}`,
			want: gateway.OutcomeFailed,
		},
		{
			name: "abandoned",
			body: `{"status":true,"data":{"status":"abandoned","reference":"PAY-1","amount":500000}}`,
			want: gateway.OutcomeFailed,
		},
		{
			name: "ongoing",
			body: `{"status":true,"data":{"status":"ongoing","reference":"PAY-1","amount":500000}}`,
			want: gateway.OutcomeInFlight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/transaction/verify/PAY-1" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}, time.Second)

			res, err := c.VerifyTransaction(context.Background(), "PAY-1")
			if err != nil {
				t.Fatalf("VerifyTransaction() error = %v", err)
			}
			if res.Outcome != tt.want {
				t.Errorf("Outcome = %s, want %s", res.Outcome, tt.want)
			}
			if tt.wantPay {
				want := time.Date(2026, 10, 19, 9, 15, 0, 0, time.UTC)
				if !res.PaidAt.Equal(want) {
					t.Errorf("PaidAt = %v, want %v", res.PaidAt, want)
				}
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error is a gateway error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: utils.ErrGateway,
		},
		{
			name: "client error is a decline",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(`{"status":false,"message":"Could not resolve account name"}`))
			},
			want: utils.ErrGatewayDeclined,
		},
		{
			name: "timeout is a gateway error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			},
			want: utils.ErrGateway,
		},
		{
			name: "garbage body is a gateway error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>`))
			},
			want: utils.ErrGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler, 50*time.Millisecond)
			_, err := c.ResolveAccount(context.Background(), "0123456789", "058")
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResolveAccount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("account_number") != "0123456789" || r.URL.Query().Get("bank_code") != "058" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"status":true,"data":{"account_number":"0123456789","account_name":"ADA LOVELACE"}}`))
	}, time.Second)

	res, err := c.ResolveAccount(context.Background(), "0123456789", "058")
	if err != nil {
		t.Fatalf("ResolveAccount() error = %v", err)
	}
	if res.AccountName != "ADA LOVELACE" {
		t.Errorf("AccountName = %q", res.AccountName)
	}
}
