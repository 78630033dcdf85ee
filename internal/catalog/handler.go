package catalog

import (
	"log/slog"
	"net/http"

	"github.com/zhiweijz/membership-payments/internal/transport"
)

type Handler struct {
	transport.BaseHandler
	Catalog *Catalog
	Logger  *slog.Logger
}

func NewHandler(c *Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: *transport.NewBaseHandler(logger),
		Catalog:     c,
		Logger:      logger,
	}
}

// GetProducts handles GET /api/v1/products. Inactive products never appear.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	active := h.Catalog.Active()

	products := make([]ProductResponse, 0, len(active))
	for _, p := range active {
		products = append(products, NewProductResponse(p))
	}

	h.WriteJSON(w, http.StatusOK, ProductsResponse{
		Products: products,
		Summary:  h.Catalog.Summarize(),
	})
}
