package order

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradesim/tradesim-api/internal/domain/catalog"
	"github.com/tradesim/tradesim-api/internal/middleware"
	"github.com/tradesim/tradesim-api/internal/pkg/errorhandler"
	"github.com/tradesim/tradesim-api/internal/pkg/gateway"
	"github.com/tradesim/tradesim-api/internal/pkg/response"
	"github.com/tradesim/tradesim-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createOrderRequest struct {
	PackageID *string `json:"package_id,omitempty"`
	Amount    int64   `json:"amount,omitempty" validate:"gte=0"`
}

type orderResponse struct {
	Order      *TopUpOrder `json:"order"`
	PaymentURL string      `json:"payment_url,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}
	if req.PackageID == nil && req.Amount == 0 {
		response.BadRequest(w, "either package_id or amount is required")
		return
	}

	o, paymentURL, err := h.svc.Create(r.Context(), userID, CreateRequest{
		PackageID: req.PackageID,
		Amount:    req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrUnknownPackage):
			response.Error(w, http.StatusBadRequest, "UNKNOWN_PACKAGE", "unknown package id")
		case errors.Is(err, ErrAmountOutOfRange):
			response.Error(w, http.StatusBadRequest, "AMOUNT_OUT_OF_RANGE", "amount must be positive and within the configured ceiling")
		case errors.Is(err, ErrGatewayUnavailable), errors.Is(err, gateway.ErrUnavailable):
			errorhandler.LogExternalServiceError(r.Context(), "payment-gateway", "/v1/intents", http.StatusServiceUnavailable, err)
			response.ServiceUnavailable(w, "GATEWAY_UNAVAILABLE", "payment gateway unavailable, please retry")
		default:
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create order", err)
		}
		return
	}

	response.Created(w, orderResponse{Order: o, PaymentURL: paymentURL})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	o, err := h.svc.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		} else {
			response.InternalError(w)
		}
		return
	}
	if o.UserID != userID {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		return
	}

	response.OK(w, o)
}

// Routes wires the order endpoints. invoiceGenerate serves the invoice that
// bills an order; it lives here so the route nests under the order path.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler, invoiceGenerate http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/{orderID}", h.Get)
	r.Get("/{orderID}/invoice", invoiceGenerate)
	return r
}
