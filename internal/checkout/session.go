package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
)

const (
	submitFailedMessage = "We could not place your order. Please try again."
	cartChangedMessage  = "Your cart changed. Please review your order again."
)

// Session is one checkout attempt for one owner. It walks shipping, payment,
// review and confirmation in order and validates each step before leaving it.
// Contact and shipping data can only change at the shipping step, payment
// data only at the payment step. The cart lines and totals are frozen on
// entering review and the idempotency key covers that frozen copy. If the
// cart changes before submission the copy is refrozen under a new key and
// the shopper has to submit again.
type Session struct {
	owner    string
	cart     *cart.Engine
	orders   OrderCreator
	payments PaymentProvider
	currency string
	logger   *zap.Logger
	newKey   func() string
	now      func() time.Time

	mu             sync.Mutex
	step           Step
	email          string
	shipping       Address
	billing        Address
	sameAsShipping bool
	method         PaymentMethod
	idempotencyKey string
	reviewItems    []cart.LineItem
	reviewSnapshot cart.Snapshot
	order          *PlacedOrder
	exited         bool
	submitting     bool
	lastError      string
	lastUsed       time.Time
}

type Option func(*Session)

// WithPaymentProvider makes SubmitOrder create a payment intent before the
// order is placed.
func WithPaymentProvider(p PaymentProvider, currency string) Option {
	return func(s *Session) {
		s.payments = p
		s.currency = currency
	}
}

func WithKeyGenerator(fn func() string) Option {
	return func(s *Session) { s.newKey = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Session) { s.now = fn }
}

func NewSession(owner string, engine *cart.Engine, orders OrderCreator, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		owner:          owner,
		cart:           engine,
		orders:         orders,
		currency:       "usd",
		logger:         logger.With(zap.String("owner", owner)),
		newKey:         uuid.NewString,
		now:            time.Now,
		step:           StepShipping,
		sameAsShipping: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.touch()
	return s
}

func (s *Session) Owner() string { return s.owner }

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Exited reports whether the shopper backed out of checkout.
func (s *Session) Exited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

// Terminal reports whether the session can no longer change.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited || s.step == StepConfirmation
}

func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// IdempotencyKey is empty outside review.
func (s *Session) IdempotencyKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idempotencyKey
}

func (s *Session) SetContact(email string) error {
	return s.edit(StepShipping, func() { s.email = strings.TrimSpace(email) })
}

func (s *Session) SetShippingAddress(a Address) error {
	return s.edit(StepShipping, func() { s.shipping = a.trimmed() })
}

func (s *Session) SetSameAsShipping(same bool) error {
	return s.edit(StepPayment, func() { s.sameAsShipping = same })
}

func (s *Session) SetBillingAddress(a Address) error {
	return s.edit(StepPayment, func() { s.billing = a.trimmed() })
}

func (s *Session) SetPaymentMethod(m PaymentMethod) error {
	if m != "" && !m.Valid() {
		return ValidationErrors(validatePaymentMethod(m))
	}
	return s.edit(StepPayment, func() { s.method = m })
}

func (s *Session) edit(at Step, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	if s.step != at {
		return ErrNotEditable
	}
	s.touch()
	apply()
	return nil
}

// Next validates the current step and advances one step. It is a no-op at
// confirmation. Review is only left through SubmitOrder.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepConfirmation {
		return nil
	}
	if err := s.guard(); err != nil {
		return err
	}
	s.touch()

	switch s.step {
	case StepShipping:
		if errs := s.shippingErrors(); len(errs) > 0 {
			return errs
		}
		s.advance(StepPayment)
	case StepPayment:
		if errs := s.paymentErrors(); len(errs) > 0 {
			return errs
		}
		s.advance(StepReview)
		s.freeze()
	case StepReview:
		return ErrSubmitRequired
	}
	return nil
}

// Back moves one step backwards. From shipping it closes the session and
// reports exited.
func (s *Session) Back() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepConfirmation {
		return false, ErrCheckoutComplete
	}
	if err := s.guard(); err != nil {
		return false, err
	}
	s.touch()

	if s.step == StepShipping {
		s.exited = true
		metrics.CheckoutTransition(StepShipping.String(), "exited")
		s.logger.Info("checkout abandoned")
		return true, nil
	}
	if s.step == StepReview {
		s.idempotencyKey = ""
		s.reviewItems = nil
		s.reviewSnapshot = cart.Snapshot{}
	}
	s.advance(s.step - 1)
	return false, nil
}

// SubmitOrder places the order built from the reviewed cart and the
// collected data. It is only valid at review. On success the session moves to
// confirmation and the ordered lines leave the cart; on failure it stays at
// review and a retry reuses the same idempotency key. A cart that no longer
// matches the reviewed copy is refrozen under a new key and rejected with a
// validation error on the items field.
func (s *Session) SubmitOrder(ctx context.Context) (PlacedOrder, error) {
	s.mu.Lock()
	if s.exited {
		s.mu.Unlock()
		return PlacedOrder{}, ErrSessionClosed
	}
	if s.submitting {
		s.mu.Unlock()
		return PlacedOrder{}, ErrSubmissionInFlight
	}
	if s.step != StepReview {
		s.mu.Unlock()
		return PlacedOrder{}, ErrNotInReview
	}
	s.touch()

	errs := append(s.shippingErrors(), s.paymentErrors()...)
	if len(errs) > 0 {
		s.mu.Unlock()
		return PlacedOrder{}, errs
	}

	if !cart.SameLines(s.cart.Items(), s.reviewItems) {
		s.freeze()
		s.lastError = cartChangedMessage
		s.mu.Unlock()
		s.logger.Info("cart changed during review, key reissued")
		return PlacedOrder{}, ValidationErrors{{Field: "items", Message: "cart changed since review"}}
	}

	snapshot := s.reviewSnapshot
	req := OrderRequest{
		UserID:          s.owner,
		Items:           append([]cart.LineItem(nil), s.reviewItems...),
		Total:           snapshot.Total,
		Email:           s.email,
		ShippingAddress: s.shipping,
		BillingAddress:  s.billingAddress(),
		PaymentMethod:   s.method,
		IdempotencyKey:  s.idempotencyKey,
	}
	s.submitting = true
	s.lastError = ""
	s.mu.Unlock()

	placed, err := s.place(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.touch()

	if err != nil {
		metrics.CheckoutSubmission("failed")
		s.lastError = submitFailedMessage
		s.logger.Warn("order submission failed",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err),
		)
		return PlacedOrder{}, &SubmitError{Message: submitFailedMessage, Err: err}
	}

	s.order = &placed
	s.advance(StepConfirmation)
	s.cart.RemoveOrdered(ctx, req.Items)
	metrics.CheckoutSubmission("succeeded")
	s.logger.Info("order placed",
		zap.String("order_id", placed.ID),
		zap.String("total", snapshot.Total.StringFixed(2)),
	)
	return placed, nil
}

func (s *Session) place(ctx context.Context, req OrderRequest) (PlacedOrder, error) {
	if s.payments != nil {
		intent, err := s.payments.CreateIntent(ctx, PaymentIntentRequest{
			Amount:         req.Total,
			Currency:       s.currency,
			Method:         req.PaymentMethod,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			return PlacedOrder{}, err
		}
		req.PaymentReference = intent.Reference
	}
	return s.orders.CreateOrder(ctx, req)
}

// View is a read-only copy of the session for rendering.
type View struct {
	Step           Step            `json:"step"`
	Email          string          `json:"email"`
	Shipping       Address         `json:"shippingAddress"`
	Billing        Address         `json:"billingAddress"`
	SameAsShipping bool            `json:"sameAsShipping"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod,omitempty"`
	Items          []cart.LineItem `json:"items"`
	Snapshot       cart.Snapshot   `json:"snapshot"`
	Order          *PlacedOrder    `json:"order,omitempty"`
	Submitting     bool            `json:"submitting"`
	Error          string          `json:"error,omitempty"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, snapshot := s.cart.View()
	if s.step == StepReview {
		items = append([]cart.LineItem(nil), s.reviewItems...)
		snapshot = s.reviewSnapshot
	}
	v := View{
		Step:           s.step,
		Email:          s.email,
		Shipping:       s.shipping,
		Billing:        s.billingAddress(),
		SameAsShipping: s.sameAsShipping,
		PaymentMethod:  s.method,
		Items:          items,
		Snapshot:       snapshot,
		Submitting:     s.submitting,
		Error:          s.lastError,
	}
	if s.order != nil {
		o := *s.order
		v.Order = &o
	}
	return v
}

// guard must be called with s.mu held.
func (s *Session) guard() error {
	switch {
	case s.exited, s.step == StepConfirmation:
		return ErrSessionClosed
	case s.submitting:
		return ErrSubmissionInFlight
	}
	return nil
}

func (s *Session) shippingErrors() ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, validateEmail(s.email)...)
	errs = append(errs, validateAddress("shippingAddress", s.shipping)...)
	if len(s.cart.Items()) == 0 {
		errs = append(errs, FieldError{Field: "items", Message: "cart is empty"})
	}
	return errs
}

func (s *Session) paymentErrors() ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, validatePaymentMethod(s.method)...)
	if !s.sameAsShipping {
		errs = append(errs, validateAddress("billingAddress", s.billing)...)
	}
	return errs
}

func (s *Session) billingAddress() Address {
	if s.sameAsShipping {
		return s.shipping
	}
	return s.billing
}

func (s *Session) advance(to Step) {
	metrics.CheckoutTransition(s.step.String(), to.String())
	s.logger.Debug("checkout step", zap.Stringer("from", s.step), zap.Stringer("to", to))
	s.step = to
}

// freeze copies the cart into the review snapshot and mints a new
// idempotency key for it. Must be called with s.mu held.
func (s *Session) freeze() {
	s.reviewItems, s.reviewSnapshot = s.cart.View()
	s.idempotencyKey = s.newKey()
}

// touch keeps the session and its cart alive together.
func (s *Session) touch() {
	s.lastUsed = s.now()
	s.cart.Touch()
}
