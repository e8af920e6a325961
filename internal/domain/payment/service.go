package payment

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tradesim/tradesim-api/internal/domain/order"
	"github.com/tradesim/tradesim-api/internal/pkg/gateway"
)

// Service authenticates gateway confirmations against stored orders. It never
// touches the ledger; crediting is the ledger engine's job.
type Service struct {
	orders *order.Repository
	repo   *Repository
	secret string
}

func NewService(orders *order.Repository, repo *Repository, signingSecret string) *Service {
	return &Service{orders: orders, repo: repo, secret: signingSecret}
}

// Verify authenticates a confirmation and moves its order pending -> verified.
//
// Terminal orders are the idempotency guard against duplicate callbacks and
// are checked before the signature: the existing order is returned alongside
// ErrOrderAlreadyTerminal so the caller can treat an already-credited order as
// a success no-op. A late confirmation for an expired order returns
// ErrOrderExpired and is kept for manual reconciliation.
func (s *Service) Verify(ctx context.Context, conf Confirmation) (*order.TopUpOrder, error) {
	o, err := s.orders.GetByGatewayRef(ctx, conf.GatewayOrderRef)
	if err != nil {
		if err == order.ErrOrderNotFound {
			s.record(ctx, conf, DispositionUnmatched)
		}
		return nil, err
	}

	// Terminal orders short-circuit before any signature work: a duplicate
	// delivery must resolve the same way no matter how garbled its payload is.
	if o.Status.Terminal() {
		if o.Status == order.StatusExpired {
			s.record(ctx, conf, DispositionLateRejected)
			log.Warn().
				Str("order_id", o.ID.String()).
				Str("gateway_payment_ref", conf.GatewayPaymentRef).
				Msg("confirmation for expired order, queued for manual reconciliation")
			return o, order.ErrOrderExpired
		}
		s.record(ctx, conf, DispositionDuplicate)
		return o, order.ErrOrderAlreadyTerminal
	}

	if !gateway.VerifyConfirmation(conf.GatewayOrderRef, conf.GatewayPaymentRef, conf.Signature, s.secret) {
		// Permanently fail the order; a later duplicate is then terminal.
		moved, err := s.orders.TransitionStatus(ctx, o.ID, o.Status, order.StatusFailed)
		if err != nil {
			return nil, err
		}
		if moved {
			o.Status = order.StatusFailed
		} else {
			log.Warn().Str("order_id", o.ID.String()).Msg("failed-transition lost a status race")
			if refreshed, getErr := s.orders.GetByID(ctx, o.ID); getErr == nil {
				o = refreshed
			}
		}
		s.record(ctx, conf, DispositionBadSignature)
		log.Warn().
			Str("order_id", o.ID.String()).
			Str("gateway_order_ref", conf.GatewayOrderRef).
			Msg("confirmation signature mismatch, order failed")
		return o, ErrSignatureInvalid
	}

	moved, err := s.orders.MarkVerified(ctx, o.ID, conf.GatewayPaymentRef)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Lost a race; re-read to see who won.
		o, err = s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		switch {
		case o.Status == order.StatusVerified:
			// A concurrent duplicate verified first; same outcome.
		case o.Status == order.StatusExpired:
			s.record(ctx, conf, DispositionLateRejected)
			return o, order.ErrOrderExpired
		case o.Status.Terminal():
			s.record(ctx, conf, DispositionDuplicate)
			return o, order.ErrOrderAlreadyTerminal
		default:
			s.record(ctx, conf, DispositionDuplicate)
			return o, order.ErrOrderAlreadyTerminal
		}
	} else {
		o, err = s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
	}

	s.record(ctx, conf, DispositionAccepted)
	log.Info().
		Str("order_id", o.ID.String()).
		Str("gateway_payment_ref", conf.GatewayPaymentRef).
		Msg("payment confirmation verified")

	return o, nil
}

// ReconciliationQueue lists confirmations needing manual attention.
func (s *Service) ReconciliationQueue(ctx context.Context, limit int) ([]ConfirmationRecord, error) {
	return s.repo.ListForReconciliation(ctx, limit)
}

func (s *Service) record(ctx context.Context, conf Confirmation, d Disposition) {
	if s.repo == nil {
		return
	}
	if err := s.repo.RecordConfirmation(ctx, conf, d); err != nil {
		log.Error().Err(err).Str("gateway_order_ref", conf.GatewayOrderRef).Msg("failed to record confirmation")
	}
}
