package catalog

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/tradesim/tradesim-api/internal/pkg/response"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// List returns the purchasable packages for display by the frontend.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	packages := h.catalog.List()
	sort.Slice(packages, func(i, j int) bool {
		return packages[i].CheckoutAmount < packages[j].CheckoutAmount
	})
	response.OK(w, packages)
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}
