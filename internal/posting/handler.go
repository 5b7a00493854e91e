package posting

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// Handler exposes source document endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.createInvoice)
		r.Get("/{id}", h.getInvoice)
		r.Post("/{id}/void", h.voidInvoice)
	})
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.createPayment)
		r.Get("/{id}", h.getPayment)
		r.Post("/{id}/void", h.voidPayment)
	})
	r.Route("/stock-movements", func(r chi.Router) {
		r.Post("/", h.createStockMovement)
		r.Get("/{id}", h.getStockMovement)
		r.Post("/{id}/void", h.voidStockMovement)
	})
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := req.ToInvoice()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.CreateInvoice(r.Context(), inv)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) voidInvoice(w http.ResponseWriter, r *http.Request) {
	h.void(w, r, func(id int64, opts accounting.VoidOptions) (any, error) {
		return h.service.VoidInvoice(r.Context(), id, opts)
	})
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	pay, err := req.ToPayment()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.CreatePayment(r.Context(), pay)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pay, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pay)
}

func (h *Handler) voidPayment(w http.ResponseWriter, r *http.Request) {
	h.void(w, r, func(id int64, opts accounting.VoidOptions) (any, error) {
		return h.service.VoidPayment(r.Context(), id, opts)
	})
}

func (h *Handler) createStockMovement(w http.ResponseWriter, r *http.Request) {
	var req StockMovementRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	mv, err := req.ToStockMovement()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.CreateStockMovement(r.Context(), mv)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) getStockMovement(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	mv, err := h.service.GetStockMovement(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mv)
}

func (h *Handler) voidStockMovement(w http.ResponseWriter, r *http.Request) {
	h.void(w, r, func(id int64, opts accounting.VoidOptions) (any, error) {
		reversal, err := h.service.VoidStockMovement(r.Context(), id, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"movementId": id, "reversal": reversal}, nil
	})
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request, run func(int64, accounting.VoidOptions) (any, error)) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	opts, err := accounting.ParseVoidOptions(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := run(id, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("document request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}
