package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"townsquare/internal/gateway"
	"townsquare/pkg/utils"
)

const tracerName = "townsquare/pkg/paystack"

type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

var _ gateway.Client = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("missing Paystack secret key")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("paystack timeout must be positive")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.paystack.co"
	}
	return &Client{
		secretKey:  cfg.SecretKey,
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeBody struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	PaidAt          string `json:"paid_at"`
	GatewayResponse string `json:"gateway_response"`
}

type resolveData struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

func (c *Client) InitializeTransaction(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResult, error) {
	body := initializeBody{
		Email:       req.Email,
		Amount:      req.AmountMinorUnits,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	var data initializeData
	if err := c.do(ctx, "initialize", http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initialize returned no authorization url", utils.ErrGateway)
	}

	providerRef := data.Reference
	if providerRef == "" {
		providerRef = req.Reference
	}
	return &gateway.InitializeResult{
		AuthorizationURL:  data.AuthorizationURL,
		AccessCode:        data.AccessCode,
		ProviderReference: providerRef,
	}, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, providerReference string) (*gateway.VerifyResult, error) {
	var data verifyData
	path := "/transaction/verify/" + url.PathEscape(providerReference)
	if err := c.do(ctx, "verify", http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	result := &gateway.VerifyResult{
		Outcome:          outcomeOf(data.Status),
		AmountMinorUnits: data.Amount,
		Currency:         data.Currency,
		RawStatus:        data.Status,
		GatewayResponse:  data.GatewayResponse,
	}
	if data.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339, data.PaidAt)
		if err != nil {
			return nil, fmt.Errorf("%w: unparseable paid_at %q", utils.ErrGateway, data.PaidAt)
		}
		result.PaidAt = paidAt.UTC()
	}
	if result.Succeeded() && result.PaidAt.IsZero() {
		return nil, fmt.Errorf("%w: successful transaction without paid_at", utils.ErrGateway)
	}
	return result, nil
}

func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*gateway.ResolvedAccount, error) {
	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)

	var data resolveData
	if err := c.do(ctx, "resolve_account", http.MethodGet, "/bank/resolve?"+q.Encode(), nil, &data); err != nil {
		return nil, err
	}
	if data.AccountName == "" {
		return nil, fmt.Errorf("%w: account name not returned", utils.ErrGatewayDeclined)
	}
	return &gateway.ResolvedAccount{
		AccountName:   data.AccountName,
		AccountNumber: data.AccountNumber,
	}, nil
}

// outcomeOf maps Paystack transaction states. Anything unknown is treated as
// still in flight so it is never recorded as a failure.
func outcomeOf(status string) gateway.Outcome {
	switch strings.ToLower(status) {
	case "success":
		return gateway.OutcomeSucceeded
	case "failed", "abandoned", "reversed":
		return gateway.OutcomeFailed
	default:
		return gateway.OutcomeInFlight
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, in any, out any) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "paystack."+op)
	span.SetAttributes(attribute.String("http.method", method))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal paystack request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", utils.ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", utils.ErrGateway, op, err)
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", utils.ErrGateway, op, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case res.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned %d", utils.ErrGateway, op, res.StatusCode)
	case res.StatusCode >= 400:
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return fmt.Errorf("%w: %s", utils.ErrGatewayDeclined, msg)
	}

	if decodeErr != nil {
		return fmt.Errorf("%w: decode %s response: %v", utils.ErrGateway, op, decodeErr)
	}
	if !env.Status {
		return fmt.Errorf("%w: %s", utils.ErrGatewayDeclined, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode %s data: %v", utils.ErrGateway, op, err)
		}
	}
	return nil
}
