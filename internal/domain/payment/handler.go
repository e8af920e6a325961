package payment

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tradesim/tradesim-api/internal/domain/ledger"
	"github.com/tradesim/tradesim-api/internal/domain/order"
	"github.com/tradesim/tradesim-api/internal/pkg/response"
	"github.com/tradesim/tradesim-api/internal/pkg/validator"
)

// Notifier pushes order outcome events to interested subscribers.
type Notifier interface {
	OrderCredited(ctx context.Context, o order.TopUpOrder, creditedAmount int64)
	OrderFailed(ctx context.Context, o order.TopUpOrder)
}

type Handler struct {
	verifier *Service
	ledger   *ledger.Service
	orders   *order.Repository
	notifier Notifier
}

func NewHandler(verifier *Service, ledgerSvc *ledger.Service, orders *order.Repository, notifier Notifier) *Handler {
	return &Handler{verifier: verifier, ledger: ledgerSvc, orders: orders, notifier: notifier}
}

type callbackRequest struct {
	GatewayPaymentRef string `json:"gateway_payment_ref" validate:"required"`
	GatewayOrderRef   string `json:"gateway_order_ref" validate:"required"`
	Signature         string `json:"signature" validate:"required"`
}

type callbackResponse struct {
	Order          *order.TopUpOrder `json:"order"`
	Balance        int64             `json:"balance"`
	CreditedAmount int64             `json:"credited_amount"`
}

// Callback implements verify-and-credit for gateway payment confirmations.
// Duplicate deliveries for an already-credited order answer 200 with a zero
// credited amount so gateway retries stop without side effects.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	conf := Confirmation{
		GatewayPaymentRef: req.GatewayPaymentRef,
		GatewayOrderRef:   req.GatewayOrderRef,
		Signature:         req.Signature,
		ReceivedAt:        time.Now(),
	}

	o, err := h.verifier.Verify(r.Context(), conf)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "no order for gateway reference")
		case errors.Is(err, order.ErrOrderExpired):
			response.Gone(w, "ORDER_EXPIRED", "order expired before confirmation arrived")
		case errors.Is(err, order.ErrOrderAlreadyTerminal):
			h.respondTerminal(w, r, o)
		case errors.Is(err, ErrSignatureInvalid):
			if o != nil && o.Status == order.StatusFailed && h.notifier != nil {
				h.notifier.OrderFailed(r.Context(), *o)
			}
			response.Error(w, http.StatusBadRequest, "SIGNATURE_INVALID", "confirmation signature mismatch")
		default:
			response.InternalError(w)
		}
		return
	}

	entry, err := h.ledger.Credit(r.Context(), o.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidOrderState) {
			// Lost the crediting race; if the winner credited, this is a no-op success.
			refreshed, getErr := h.orders.GetByID(r.Context(), o.ID)
			if getErr == nil && refreshed.Status == order.StatusCredited {
				h.respondTerminal(w, r, refreshed)
				return
			}
			response.Error(w, http.StatusConflict, "INVALID_ORDER_STATE", "order is not in a creditable state")
			return
		}
		response.InternalError(w)
		return
	}

	o.Status = order.StatusCredited
	if h.notifier != nil {
		h.notifier.OrderCredited(r.Context(), *o, entry.Amount)
	}

	balance, err := h.ledger.GetBalance(r.Context(), o.UserID)
	if err != nil {
		// The credit committed; surface it even if the balance read failed.
		balance = entry.Amount
	}

	response.OK(w, callbackResponse{
		Order:          o,
		Balance:        balance,
		CreditedAmount: entry.Amount,
	})
}

// respondTerminal answers a duplicate confirmation: success no-op when the
// order is credited, conflict otherwise.
func (h *Handler) respondTerminal(w http.ResponseWriter, r *http.Request, o *order.TopUpOrder) {
	if o == nil {
		response.InternalError(w)
		return
	}
	if o.Status != order.StatusCredited {
		response.Error(w, http.StatusConflict, "ORDER_ALREADY_TERMINAL", "order already resolved as "+string(o.Status))
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), o.UserID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, callbackResponse{
		Order:          o,
		Balance:        balance,
		CreditedAmount: 0,
	})
}

// Reconciliation lists late-rejected confirmations for manual follow-up.
func (h *Handler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := h.verifier.ReconciliationQueue(r.Context(), limit)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, records)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	// Callback is authenticated by its HMAC signature, not a bearer token.
	r.Post("/callback", h.Callback)
	r.With(authMiddleware).Get("/reconciliation", h.Reconciliation)
	return r
}
