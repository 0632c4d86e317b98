package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"townsquare/internal/gateway"
	dbm "townsquare/internal/models/db_models"
	"townsquare/internal/models/response_models"
	"townsquare/internal/repositories"
	"townsquare/pkg/utils"
)

const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"

	maxReferenceAttempts = 3
	tracerName           = "townsquare/internal/services"
)

type PaymentConfig struct {
	DefaultCurrency string
	CallbackURL     string
	WebhookSecret   string        // Paystack signs webhooks with the secret key
	GatewayTimeout  time.Duration // bound on every gateway round-trip
}

type InitializePaymentInput struct {
	UserID      uuid.UUID
	Email       string
	Amount      decimal.Decimal
	Currency    string
	Type        dbm.PaymentType
	Target      dbm.PaymentTarget
	Description string
	Metadata    map[string]any
}

// PaymentService is the payment ledger. It is the only writer of
// payments.status and drives the Reconciler inside the same transaction.
type PaymentService interface {
	Initialize(ctx context.Context, in InitializePaymentInput) (*response_models.InitializePaymentResponse, error)
	// Verify is idempotent: once a payment left pending it is returned as is.
	Verify(ctx context.Context, reference string) (*dbm.Payment, error)
	// VerifyForUser is Verify for the payment's owner; anyone else gets ErrForbidden
	// before the gateway is asked.
	VerifyForUser(ctx context.Context, reference string, requesterId uuid.UUID) (*dbm.Payment, error)
	// Refund is deliberately not idempotent; a second refund fails with ErrInvalidState.
	Refund(ctx context.Context, paymentId, requesterId uuid.UUID, amount *decimal.Decimal) (*dbm.Payment, error)
	HandleWebhook(ctx context.Context, signature string, body []byte) error
	GetPayment(ctx context.Context, paymentId, requesterId uuid.UUID) (*dbm.Payment, error)
	ListPayments(ctx context.Context, userId uuid.UUID, page, pageSize int) ([]dbm.Payment, int64, error)
	// ListOpenFaults returns settlements that still need manual repair.
	ListOpenFaults(ctx context.Context) ([]dbm.ReconciliationFault, error)
}

type paymentService struct {
	db         *gorm.DB
	cfg        PaymentConfig
	gateway    gateway.Client
	references ReferenceGenerator
	payments   repositories.PaymentRepository
	bookings   repositories.BookingRepository
	events     repositories.EventRepository
	outbox     repositories.OutboxRepository
	reconciler Reconciler
	log        *zap.Logger
}

func NewPaymentService(
	db *gorm.DB,
	cfg PaymentConfig,
	gw gateway.Client,
	references ReferenceGenerator,
	payments repositories.PaymentRepository,
	bookings repositories.BookingRepository,
	events repositories.EventRepository,
	outbox repositories.OutboxRepository,
	reconciler Reconciler,
	log *zap.Logger,
) (PaymentService, error) {
	if gw == nil {
		return nil, errors.New("payment gateway is required")
	}
	if cfg.GatewayTimeout <= 0 {
		return nil, errors.New("gateway timeout must be positive")
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "NGN"
	}

	return &paymentService{
		db:         db,
		cfg:        cfg,
		gateway:    gw,
		references: references,
		payments:   payments,
		bookings:   bookings,
		events:     events,
		outbox:     outbox,
		reconciler: reconciler,
		log:        log.Named("payments"),
	}, nil
}

func (p *paymentService) Initialize(ctx context.Context, in InitializePaymentInput) (*response_models.InitializePaymentResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "payments.initialize")
	defer span.End()

	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", utils.ErrValidation)
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", utils.ErrValidation)
	}
	if in.Type == "" {
		in.Type = dbm.PaymentTypeOther
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown payment type %q", utils.ErrValidation, in.Type)
	}
	if in.Target == nil {
		in.Target = dbm.NoTarget{}
	}
	currency, err := utils.NormalizeCurrency(in.Currency, p.cfg.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	meta := map[string]any{}
	for k, v := range in.Metadata {
		meta[k] = v
	}
	if _, ok := in.Target.(dbm.EventTarget); ok {
		guests, err := ticketGuests(meta)
		if err != nil {
			return nil, err
		}
		meta["guests_count"] = guests
	}
	in.Metadata = meta

	if err := p.checkPayable(ctx, in, currency); err != nil {
		return nil, err
	}
	minor, err := utils.ToMinorUnits(in.Amount, currency)
	if err != nil {
		return nil, err
	}

	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata is not serializable", utils.ErrValidation)
	}

	payment := &dbm.Payment{
		UserID:      in.UserID,
		Amount:      in.Amount,
		Currency:    currency,
		Status:      dbm.PaymentStatusPending,
		Type:        in.Type,
		Description: in.Description,
		Metadata:    datatypes.JSON(rawMeta),
	}
	payment.SetTarget(in.Target)

	if err := p.createWithFreshReference(ctx, payment); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.reference", payment.Reference))

	meta["payment_id"] = payment.ID.String()
	meta["reference"] = payment.Reference

	gctx, cancel := context.WithTimeout(ctx, p.cfg.GatewayTimeout)
	defer cancel()
	res, err := p.gateway.InitializeTransaction(gctx, gateway.InitializeRequest{
		Email:            in.Email,
		AmountMinorUnits: minor,
		Currency:         currency,
		Reference:        payment.Reference,
		Metadata:         meta,
		CallbackURL:      p.cfg.CallbackURL,
	})
	if err != nil {
		// The customer never received an authorization handle, so no money can
		// move against this reference.
		p.log.Warn("gateway initialize failed",
			zap.String("reference", payment.Reference),
			zap.Error(err))
		p.closeUnauthorized(ctx, payment, err)
		return nil, err
	}

	if err := p.payments.UpdateFields(ctx, payment.ID, map[string]interface{}{
		"external_reference": res.ProviderReference,
		"access_code":        res.AccessCode,
		"authorization_url":  res.AuthorizationURL,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	p.log.Info("payment initialized",
		zap.String("payment_id", payment.ID.String()),
		zap.String("reference", payment.Reference),
		zap.String("type", string(payment.Type)),
		zap.Int64("amount_minor", minor),
		zap.String("currency", currency))

	return &response_models.InitializePaymentResponse{
		PaymentID:        payment.ID,
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Reference:        payment.Reference,
	}, nil
}

// checkPayable validates the capacity-bearing target before any money is requested.
func (p *paymentService) checkPayable(ctx context.Context, in InitializePaymentInput, currency string) error {
	switch target := in.Target.(type) {
	case dbm.BookingTarget:
		booking, err := p.bookings.FindById(ctx, target.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if booking == nil {
			return fmt.Errorf("%w: booking %s", utils.ErrNotFound, target.ID)
		}
		if booking.UserID != in.UserID {
			return fmt.Errorf("%w: booking %s belongs to another user", utils.ErrForbidden, target.ID)
		}
		if booking.PaymentStatus == dbm.BookingPaymentPaid {
			return fmt.Errorf("%w: booking %s", utils.ErrAlreadyPaid, target.ID)
		}
		if booking.Status == dbm.BookingStatusCancelled || booking.Status == dbm.BookingStatusCompleted {
			return fmt.Errorf("%w: booking %s is %s", utils.ErrInvalidState, target.ID, booking.Status)
		}
	case dbm.EventTarget:
		event, err := p.events.FindById(ctx, target.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if event == nil {
			return fmt.Errorf("%w: event %s", utils.ErrNotFound, target.ID)
		}
		if !event.RequiresPayment() {
			return fmt.Errorf("%w: event %s is free", utils.ErrValidation, target.ID)
		}
		if event.Currency != "" && !strings.EqualFold(event.Currency, currency) {
			return fmt.Errorf("%w: event %s is priced in %s", utils.ErrValidation, target.ID, event.Currency)
		}
		guests, err := ticketGuests(in.Metadata)
		if err != nil {
			return err
		}
		seats := 1 + guests
		if in.Amount.LessThan(event.Price.Mul(decimal.NewFromInt(int64(seats)))) {
			return fmt.Errorf("%w: amount does not cover %d seat(s)", utils.ErrValidation, seats)
		}
		attendee, err := p.events.FindAttendee(ctx, target.ID, in.UserID)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if attendee != nil && attendee.PaymentStatus == dbm.BookingPaymentPaid {
			return fmt.Errorf("%w: ticket for event %s", utils.ErrAlreadyPaid, target.ID)
		}
	}
	return nil
}

// createWithFreshReference inserts the pending row, minting a new reference
// if the unique index ever reports a collision.
func (p *paymentService) createWithFreshReference(ctx context.Context, payment *dbm.Payment) error {
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		ref, err := p.references.NewReference()
		if err != nil {
			return err
		}
		payment.Reference = ref
		payment.ID = uuid.Nil

		err = p.payments.Create(ctx, payment)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		p.log.Error("payment reference collision", zap.String("reference", ref), zap.Int("attempt", attempt))
	}
	return fmt.Errorf("%w: could not mint a unique payment reference", utils.ErrDatabaseError)
}

func (p *paymentService) closeUnauthorized(ctx context.Context, payment *dbm.Payment, cause error) {
	reason := "initialize_error: " + utils.ErrorKind(cause)
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		failed, changed, err := p.transition(ctx, tx, payment.ID, dbm.PaymentStatusFailed, map[string]interface{}{"failure_reason": reason})
		if err != nil || !changed {
			return err
		}
		return p.announce(ctx, tx, EventPaymentFailed, failed)
	})
	if err != nil {
		p.log.Error("could not close unauthorized payment", zap.String("reference", payment.Reference), zap.Error(err))
	}
}

func (p *paymentService) Verify(ctx context.Context, reference string) (*dbm.Payment, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "payments.verify")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", reference))

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", utils.ErrValidation)
	}

	payment, err := p.payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment %s", utils.ErrNotFound, reference)
	}
	if payment.Status.IsFinal() {
		return payment, nil
	}

	providerRef := payment.Reference
	if payment.ExternalReference != nil && *payment.ExternalReference != "" {
		providerRef = *payment.ExternalReference
	}

	// No lock is held across the gateway round-trip.
	gctx, cancel := context.WithTimeout(ctx, p.cfg.GatewayTimeout)
	defer cancel()
	res, err := p.gateway.VerifyTransaction(gctx, providerRef)
	if err != nil {
		if errors.Is(gctx.Err(), context.DeadlineExceeded) && !errors.Is(err, utils.ErrGateway) {
			err = fmt.Errorf("%w: verify timed out: %v", utils.ErrGateway, err)
		}
		p.log.Warn("gateway verify failed, payment left pending",
			zap.String("reference", payment.Reference),
			zap.Error(err))
		return nil, err
	}

	switch res.Outcome {
	case gateway.OutcomeSucceeded:
		expected, err := utils.ToMinorUnits(payment.Amount, payment.Currency)
		if err != nil {
			return nil, err
		}
		currencyMismatch := res.Currency != "" && !strings.EqualFold(res.Currency, payment.Currency)
		if res.AmountMinorUnits < expected || currencyMismatch {
			return p.fail(ctx, payment.ID, "amount_mismatch", map[string]any{
				"expected": payment.Amount.String(),
				"received": utils.FromMinorUnits(res.AmountMinorUnits, payment.Currency).String(),
				"currency": res.Currency,
			})
		}
		return p.settle(ctx, payment.ID, res.PaidAt)
	case gateway.OutcomeFailed:
		reason := res.RawStatus
		if res.GatewayResponse != "" {
			reason += ": " + res.GatewayResponse
		}
		return p.fail(ctx, payment.ID, reason, nil)
	default:
		p.log.Info("payment still in flight at gateway",
			zap.String("reference", payment.Reference),
			zap.String("gateway_status", res.RawStatus))
		return payment, nil
	}
}

func (p *paymentService) VerifyForUser(ctx context.Context, reference string, requesterId uuid.UUID) (*dbm.Payment, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", utils.ErrValidation)
	}
	payment, err := p.payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment %s", utils.ErrNotFound, reference)
	}
	if payment.UserID != requesterId {
		return nil, fmt.Errorf("%w: payment %s belongs to another user", utils.ErrForbidden, reference)
	}
	return p.Verify(ctx, payment.Reference)
}

// settle moves pending to success and runs the Reconciler in the same
// transaction. A concurrent verifier that lost the race sees a non-pending row
// under the lock and returns it without side effects.
func (p *paymentService) settle(ctx context.Context, paymentId uuid.UUID, paidAt time.Time) (*dbm.Payment, error) {
	var settled *dbm.Payment
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, changed, err := p.transition(ctx, tx, paymentId, dbm.PaymentStatusSuccess, map[string]interface{}{
			"paid_at": paidAt.Unix(),
		})
		if err != nil {
			return err
		}
		settled = payment
		if !changed {
			return nil
		}
		if err := p.reconciler.OnPaymentSettled(ctx, tx, payment); err != nil {
			return err
		}
		return p.announce(ctx, tx, EventPaymentSucceeded, payment)
	})
	if err != nil {
		p.log.Error("settlement rolled back, payment left pending",
			zap.String("payment_id", paymentId.String()),
			zap.Error(err))
		return nil, err
	}
	if settled.Status == dbm.PaymentStatusSuccess {
		p.log.Info("payment settled", zap.String("reference", settled.Reference))
	}
	return settled, nil
}

func (p *paymentService) fail(ctx context.Context, paymentId uuid.UUID, reason string, faultDetail map[string]any) (*dbm.Payment, error) {
	var failed *dbm.Payment
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, changed, err := p.transition(ctx, tx, paymentId, dbm.PaymentStatusFailed, map[string]interface{}{
			"failure_reason": reason,
		})
		if err != nil {
			return err
		}
		failed = payment
		if !changed {
			return nil
		}
		if faultDetail != nil {
			p.log.Error("gateway amount mismatch", zap.String("reference", payment.Reference), zap.Any("detail", faultDetail))
			if err := p.outbox.WithTx(tx).RecordFault(ctx, payment.ID, dbm.FaultAmountMismatch, faultDetail); err != nil {
				return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
			}
		}
		return p.announce(ctx, tx, EventPaymentFailed, payment)
	})
	if err != nil {
		return nil, err
	}
	return failed, nil
}

// transition locks the payment row and applies a pending->next move. It
// reports changed=false, with no error, when the payment already left
// pending; that is the idempotency guard for re-delivered settlements.
func (p *paymentService) transition(ctx context.Context, tx *gorm.DB, paymentId uuid.UUID, next dbm.PaymentStatus, fields map[string]interface{}) (*dbm.Payment, bool, error) {
	payments := p.payments.WithTx(tx)
	payment, err := payments.FindByIdForUpdate(ctx, paymentId)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if payment == nil {
		return nil, false, fmt.Errorf("%w: payment %s", utils.ErrNotFound, paymentId)
	}
	if payment.Status != dbm.PaymentStatusPending {
		return payment, false, nil
	}
	if !payment.Status.CanTransitionTo(next) {
		return nil, false, fmt.Errorf("%w: %s to %s", utils.ErrInvalidTransition, payment.Status, next)
	}

	fields["status"] = next
	if err := payments.UpdateFields(ctx, payment.ID, fields); err != nil {
		return nil, false, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	updated, err := payments.FindById(ctx, payment.ID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return updated, true, nil
}

func (p *paymentService) Refund(ctx context.Context, paymentId, requesterId uuid.UUID, amount *decimal.Decimal) (*dbm.Payment, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "payments.refund")
	defer span.End()

	var refunded *dbm.Payment
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := p.payments.WithTx(tx)
		payment, err := payments.FindByIdForUpdate(ctx, paymentId)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if payment == nil {
			return fmt.Errorf("%w: payment %s", utils.ErrNotFound, paymentId)
		}
		if payment.UserID != requesterId {
			return fmt.Errorf("%w: payment %s", utils.ErrForbidden, paymentId)
		}
		if payment.Status != dbm.PaymentStatusSuccess {
			return fmt.Errorf("%w: payment %s is %s", utils.ErrInvalidState, paymentId, payment.Status)
		}
		if !payment.Status.CanTransitionTo(dbm.PaymentStatusRefunded) {
			return fmt.Errorf("%w: %s to %s", utils.ErrInvalidTransition, payment.Status, dbm.PaymentStatusRefunded)
		}

		refundAmount := payment.Amount
		if amount != nil {
			if !amount.IsPositive() || amount.GreaterThan(payment.Amount) {
				return fmt.Errorf("%w: refund amount must be between 0 and %s", utils.ErrValidation, payment.Amount.String())
			}
			if _, err := utils.ToMinorUnits(*amount, payment.Currency); err != nil {
				return err
			}
			refundAmount = *amount
		}

		if err := payments.UpdateFields(ctx, payment.ID, map[string]interface{}{
			"status":          dbm.PaymentStatusRefunded,
			"refunded_amount": refundAmount,
			"refunded_at":     utils.NowUnixSeconds(),
		}); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		payment, err = payments.FindById(ctx, payment.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}

		if err := p.reconciler.OnPaymentRefunded(ctx, tx, payment); err != nil {
			return err
		}
		refunded = payment
		return p.announce(ctx, tx, EventPaymentRefunded, payment)
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("payment refunded",
		zap.String("payment_id", refunded.ID.String()),
		zap.String("reference", refunded.Reference),
		zap.String("amount", refunded.RefundedAmount.String()))
	return refunded, nil
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// HandleWebhook authenticates a gateway callback and re-verifies the reference
// with the gateway; the callback payload itself is never trusted.
func (p *paymentService) HandleWebhook(ctx context.Context, signature string, body []byte) error {
	if p.cfg.WebhookSecret == "" || !utils.VerifyHMACSHA512([]byte(p.cfg.WebhookSecret), body, signature) {
		return fmt.Errorf("%w: invalid webhook signature", utils.ErrForbidden)
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("%w: invalid webhook payload", utils.ErrValidation)
	}

	switch evt.Event {
	case "charge.success":
		if evt.Data.Reference == "" {
			return fmt.Errorf("%w: webhook without reference", utils.ErrValidation)
		}
		_, err := p.Verify(ctx, evt.Data.Reference)
		if errors.Is(err, utils.ErrNotFound) {
			// Not ours; acknowledge so the provider stops retrying.
			p.log.Warn("webhook for unknown reference", zap.String("reference", evt.Data.Reference))
			return nil
		}
		return err
	default:
		p.log.Debug("ignoring webhook event", zap.String("event", evt.Event))
		return nil
	}
}

func (p *paymentService) GetPayment(ctx context.Context, paymentId, requesterId uuid.UUID) (*dbm.Payment, error) {
	payment, err := p.payments.FindById(ctx, paymentId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment %s", utils.ErrNotFound, paymentId)
	}
	if payment.UserID != requesterId {
		return nil, fmt.Errorf("%w: payment %s", utils.ErrForbidden, paymentId)
	}
	return payment, nil
}

func (p *paymentService) ListPayments(ctx context.Context, userId uuid.UUID, page, pageSize int) ([]dbm.Payment, int64, error) {
	if page < 1 {
		return nil, 0, fmt.Errorf("%w: page must be greater than 0", utils.ErrValidation)
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, 0, fmt.Errorf("%w: page size must be between 1 and 100", utils.ErrValidation)
	}
	payments, total, err := p.payments.ListByUser(ctx, userId, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return payments, total, nil
}

func (p *paymentService) ListOpenFaults(ctx context.Context) ([]dbm.ReconciliationFault, error) {
	faults, err := p.outbox.ListOpenFaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return faults, nil
}

type paymentEvent struct {
	Event      string           `json:"event"`
	Version    int              `json:"version"`
	OccurredAt string           `json:"occurred_at"`
	Data       paymentEventData `json:"data"`
}

type paymentEventData struct {
	PaymentID uuid.UUID  `json:"payment_id"`
	Reference string     `json:"reference"`
	UserID    uuid.UUID  `json:"user_id"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	Amount    string     `json:"amount"`
	Currency  string     `json:"currency"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
	EventID   *uuid.UUID `json:"event_id,omitempty"`
	BillID    *uuid.UUID `json:"bill_id,omitempty"`
}

func (p *paymentService) announce(ctx context.Context, tx *gorm.DB, key string, payment *dbm.Payment) error {
	evt := paymentEvent{
		Event:      key,
		Version:    1,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Data: paymentEventData{
			PaymentID: payment.ID,
			Reference: payment.Reference,
			UserID:    payment.UserID,
			Type:      string(payment.Type),
			Status:    string(payment.Status),
			Amount:    payment.Amount.String(),
			Currency:  payment.Currency,
			BookingID: payment.BookingID,
			EventID:   payment.EventID,
			BillID:    payment.BillID,
		},
	}
	if err := p.outbox.WithTx(tx).Enqueue(ctx, payment.ID, key, evt); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

// ticketGuests reads metadata.guests_count. Absent means no guests; anything
// other than a non-negative whole number is rejected.
func ticketGuests(meta map[string]any) (int, error) {
	raw, ok := meta["guests_count"]
	if !ok || raw == nil {
		return 0, nil
	}
	var n float64
	switch v := raw.(type) {
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case float64:
		n = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: guests_count must be a whole number", utils.ErrValidation)
		}
		n = f
	default:
		return 0, fmt.Errorf("%w: guests_count must be a whole number", utils.ErrValidation)
	}
	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: guests_count must be a non-negative whole number", utils.ErrValidation)
	}
	return int(n), nil
}
