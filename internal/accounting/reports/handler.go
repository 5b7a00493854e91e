package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// Handler exposes report endpoints.
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

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/trial-balance", h.trialBalance)
	r.Get("/reports/general-ledger", h.generalLedger)
	r.Get("/reports/profit-and-loss", h.profitAndLoss)
	r.Get("/reports/balance-sheet", h.balanceSheet)
	r.Get("/reports/integrity", h.integrity)
}

func parseTrialBalanceQuery(r *http.Request) (TrialBalanceQuery, error) {
	asOf, err := httpx.ParseDate("date", r.URL.Query().Get("date"))
	if err != nil {
		return TrialBalanceQuery{}, err
	}
	return TrialBalanceQuery{Currency: r.URL.Query().Get("currency"), AsOf: asOf}, nil
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	q, err := parseTrialBalanceQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) generalLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := httpx.QueryInt64(r, "accountId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := httpx.ParseDate("fromDate", r.URL.Query().Get("fromDate"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.ParseDate("toDate", r.URL.Query().Get("toDate"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	gl, err := h.service.GeneralLedger(r.Context(), LedgerQuery{
		AccountID: accountID,
		Currency:  r.URL.Query().Get("currency"),
		From:      from,
		To:        to,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, gl)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	q, err := parseTrialBalanceQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	q, err := parseTrialBalanceQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) integrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.IntegrityCheck(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("report request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}
