package accounting

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// Handler wires journal and account endpoints.
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

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/journals", h.createJournal)
	r.Get("/journals/{id}", h.getJournal)
	r.Post("/journals/{id}/post", h.postJournal)
	r.Post("/journals/{id}/void", h.voidJournal)
	r.Get("/accounts", h.listAccounts)
	r.Put("/accounts/{id}/parent", h.setParent)
}

type journalLineRequest struct {
	AccountID   int64           `json:"accountId" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=255"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"required,len=3"`
}

type journalRequest struct {
	Date      string               `json:"date" validate:"required"`
	Reference string               `json:"reference" validate:"required,max=64"`
	Narration string               `json:"narration" validate:"max=255"`
	Draft     bool                 `json:"draft"`
	Lines     []journalLineRequest `json:"lines" validate:"required,min=2,dive"`
}

// VoidRequest is the optional body of every void endpoint.
type VoidRequest struct {
	Date string `json:"date"`
}

type parentRequest struct {
	ParentID *int64 `json:"parentId" validate:"omitempty,gt=0"`
}

func (h *Handler) createJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := httpx.RequireDate("date", req.Date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := ManualJournalInput{
		Date:      date,
		Reference: req.Reference,
		Narration: req.Narration,
		Draft:     req.Draft,
		Lines:     make([]ManualLineInput, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, ManualLineInput{
			AccountID:   line.AccountID,
			Description: line.Description,
			Amount:      line.Amount,
			Currency:    line.Currency,
		})
	}
	journal, err := h.service.CreateManualJournal(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, journal)
}

func (h *Handler) getJournal(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	journal, err := h.service.GetJournal(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, journal)
}

func (h *Handler) postJournal(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	journal, err := h.service.PostDraft(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, journal)
}

func (h *Handler) voidJournal(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	opts, err := ParseVoidOptions(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	reversal, err := h.service.VoidJournal(r.Context(), id, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reversal)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) setParent(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req parentRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.SetAccountParent(r.Context(), id, req.ParentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("ledger request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}

// ParseVoidOptions reads the optional void date from the request body. An
// empty body means today.
func ParseVoidOptions(r *http.Request) (VoidOptions, error) {
	if r.ContentLength == 0 {
		return VoidOptions{}, nil
	}
	var req VoidRequest
	if err := httpx.Bind(r, &req); err != nil {
		return VoidOptions{}, err
	}
	date, err := httpx.ParseDate("date", req.Date)
	if err != nil {
		return VoidOptions{}, err
	}
	return VoidOptions{Date: date}, nil
}
