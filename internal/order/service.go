package order

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
)

// Publisher announces placed orders to other services.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, o Order) error
}

type Service struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
	validate  *validator.Validate
	newID     func() string
}

// NewService wires the order workflow. publisher may be nil, in which case
// nothing is announced.
func NewService(repo Repository, publisher Publisher, logger *zap.Logger) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validate:  v,
		newID:     uuid.NewString,
	}
}

// Place validates req, checks its total against the cart pricing rules and
// stores the order. A request carrying an idempotency key that was already
// used returns the stored order with replayed set, or ErrIdempotencyConflict
// when the stored order has a different owner, items or total.
func (s *Service) Place(ctx context.Context, req PlaceRequest, idempotencyKey string) (Order, bool, error) {
	if err := s.check(req); err != nil {
		return Order{}, false, err
	}

	o := Order{
		ID:               s.newID(),
		UserID:           req.UserID,
		Email:            req.Email,
		Items:            req.Items,
		Total:            req.Total,
		ShippingAddress:  req.ShippingAddress,
		BillingAddress:   req.BillingAddress,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		Status:           StatusPending,
		IdempotencyKey:   idempotencyKey,
	}

	replayed, err := s.repo.Create(ctx, &o)
	if err != nil {
		return Order{}, false, err
	}

	log := s.logger.With(zap.String("order_id", o.ID), zap.String("user_id", o.UserID))
	if replayed && !samePlacement(o, req) {
		log.Warn("idempotency key reused with different order",
			zap.String("idempotency_key", idempotencyKey),
			zap.String("stored_total", o.Total.StringFixed(2)),
			zap.String("submitted_total", req.Total.StringFixed(2)),
		)
		return Order{}, false, ErrIdempotencyConflict
	}
	metrics.OrderCreated(replayed)

	if replayed {
		log.Info("order replayed", zap.String("idempotency_key", idempotencyKey))
		return o, true, nil
	}
	log.Info("order created", zap.String("total", o.Total.StringFixed(2)), zap.Int("items", len(o.Items)))

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, o); err != nil {
			log.Warn("publish OrderPlaced failed", zap.Error(err))
		}
	}
	return o, false, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) check(req PlaceRequest) error {
	var fields []string
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, fieldPath(fe.Namespace()))
		}
	}

	lines := make([]cart.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Price.IsNegative() {
			fields = append(fields, "items.price")
		}
		lines = append(lines, cart.LineItem{ProductID: it.ProductID, Price: it.Price, Quantity: it.Quantity})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	if want := cart.Price(lines).Total; !want.Equal(req.Total) {
		s.logger.Info("order total mismatch",
			zap.String("user_id", req.UserID),
			zap.String("submitted", req.Total.String()),
			zap.String("computed", want.String()),
		)
		return ErrTotalMismatch
	}
	return nil
}

// samePlacement reports whether a stored order was placed from req.
func samePlacement(o Order, req PlaceRequest) bool {
	if o.UserID != req.UserID || !o.Total.Equal(req.Total) || len(o.Items) != len(req.Items) {
		return false
	}
	for i, it := range req.Items {
		got := o.Items[i]
		if got.ProductID != it.ProductID || got.Quantity != it.Quantity || got.Size != it.Size ||
			got.Color != it.Color || !got.Price.Equal(it.Price) {
			return false
		}
	}
	return true
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
