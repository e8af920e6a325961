package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tradesim/tradesim-api/internal/domain/catalog"
	"github.com/tradesim/tradesim-api/internal/pkg/gateway"
)

// IntentCreator is the slice of the gateway client the issuer needs.
type IntentCreator interface {
	CreateIntent(ctx context.Context, req gateway.CreateIntentRequest) (*gateway.CreateIntentResponse, error)
}

// Config holds issuance policy
type Config struct {
	Ceiling  int64 // max checkout amount
	Currency string
}

type Service struct {
	repo    *Repository
	catalog *catalog.Catalog
	gateway IntentCreator
	cfg     Config
}

func NewService(repo *Repository, cat *catalog.Catalog, gw IntentCreator, cfg Config) *Service {
	return &Service{repo: repo, catalog: cat, gateway: gw, cfg: cfg}
}

// CreateRequest carries either a package id or a free-form checkout amount.
type CreateRequest struct {
	PackageID *string
	Amount    int64
}

// Create validates the request, registers a payment intent with the gateway
// and persists a new pending order. Nothing is persisted when the gateway
// call fails, so the caller can retry safely.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*TopUpOrder, string, error) {
	var (
		checkout    int64
		credit      int64
		description string
	)

	if req.PackageID != nil {
		pkg, err := s.catalog.Resolve(*req.PackageID)
		if err != nil {
			return nil, "", err
		}
		checkout = pkg.CheckoutAmount
		credit = pkg.CreditAmount
		description = fmt.Sprintf("Top-up: %s", pkg.Name)
	} else {
		checkout = req.Amount
		credit = s.catalog.ResolveCustom(req.Amount)
		description = "Top-up: custom amount"
	}

	if checkout <= 0 || checkout > s.cfg.Ceiling {
		return nil, "", ErrAmountOutOfRange
	}

	intent, err := s.gateway.CreateIntent(ctx, gateway.CreateIntentRequest{
		Amount:      checkout,
		Currency:    s.cfg.Currency,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return nil, "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return nil, "", err
	}

	now := time.Now()
	o := &TopUpOrder{
		ID:              uuid.New(),
		UserID:          userID,
		PackageID:       req.PackageID,
		CheckoutAmount:  checkout,
		CreditAmount:    credit,
		GatewayOrderRef: intent.OrderRef,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, "", err
	}

	log.Info().
		Str("order_id", o.ID.String()).
		Str("user_id", userID.String()).
		Int64("checkout_amount", checkout).
		Int64("credit_amount", credit).
		Str("gateway_order_ref", o.GatewayOrderRef).
		Msg("topup order created")

	return o, intent.PaymentURL, nil
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*TopUpOrder, error) {
	return s.repo.GetByID(ctx, id)
}
