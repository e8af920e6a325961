package invoice

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradesim/tradesim-api/internal/domain/order"
	"github.com/tradesim/tradesim-api/internal/middleware"
	"github.com/tradesim/tradesim-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Generate creates or returns the invoice for one of the caller's orders.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
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

	inv, err := h.svc.Generate(r.Context(), userID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		case errors.Is(err, ErrOrderNotCredited):
			response.Error(w, http.StatusConflict, "ORDER_NOT_CREDITED", "invoice requires a credited order")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, inv)
}

// Document streams the invoice document bytes.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	invoiceNumber := chi.URLParam(r, "invoiceNumber")

	inv, data, err := h.svc.Fetch(r.Context(), invoiceNumber)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvoiceNotFound):
			response.Error(w, http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found")
		case errors.Is(err, ErrInvoiceExpired):
			response.Gone(w, "INVOICE_EXPIRED", "invoice document has been purged")
		default:
			response.InternalError(w)
		}
		return
	}
	if inv.UserID != userID {
		response.Error(w, http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+inv.InvoiceNumber+`.txt"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// List returns the caller's invoices, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	page := atoiDefault(r.URL.Query().Get("page"), 1)
	limit := atoiDefault(r.URL.Query().Get("limit"), 20)

	invoices, total, err := h.svc.List(r.Context(), userID, page, limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	pages := (total + limit - 1) / limit

	response.WithMeta(w, invoices, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.List)
	r.Get("/{invoiceNumber}/document", h.Document)
	return r
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
