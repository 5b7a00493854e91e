package posting_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/posting"
)

func (f *fixture) router() http.Handler {
	r := chi.NewRouter()
	posting.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc).MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func problemOf(t *testing.T, rr *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

func TestInvoiceEndpointsLifecycle(t *testing.T) {
	f := newFixture(t)
	h := f.router()

	body := fmt.Sprintf(`{
		"type": "sales",
		"contactId": %d,
		"reference": "INV-HTTP-1",
		"date": "2024-06-01",
		"currency": "USD",
		"lines": [{"productId": %d, "quantity": "2", "unitPrice": "50"}]
	}`, f.seeded.Contacts["Acme"], f.seeded.Products["WIDGET"])
	rr := do(t, h, http.MethodPost, "/invoices", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created posting.InvoiceResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "INV-HTTP-1", created.Journal.Reference)
	require.Len(t, created.Journal.Lines, 2)
	assert.Equal(t, "100", created.Invoice.Total.String())

	path := fmt.Sprintf("/invoices/%d", created.Invoice.ID)
	rr = do(t, h, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPost, path+"/void", `{"date": "2024-06-15"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"reference":"INV-HTTP-1 - Void"`)
	assert.Contains(t, rr.Body.String(), `"date":"2024-06-15T00:00:00Z"`)

	rr = do(t, h, http.MethodPost, path+"/void", "")
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, httpx.ProblemType(httpx.KindConflict), problemOf(t, rr).Type)
}

func TestCreateInvoiceErrorStatuses(t *testing.T) {
	f := newFixture(t)
	h := f.router()

	rr := do(t, h, http.MethodPost, "/invoices", `{"type":"SALES"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/invoices", `not json`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	missingReceivable := fmt.Sprintf(`{
		"type": "SALES",
		"contactId": %d,
		"reference": "INV-NOMAP",
		"date": "2024-06-01",
		"currency": "USD",
		"lines": [{"productId": %d, "quantity": "1", "unitPrice": "10"}]
	}`, f.seeded.Contacts["Initech"], f.seeded.Products["WIDGET"])
	rr = do(t, h, http.MethodPost, "/invoices", missingReceivable)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	p := problemOf(t, rr)
	assert.Equal(t, "Account Mapping Missing", p.Title)
	assert.Equal(t, httpx.ProblemType(httpx.KindMapping), p.Type)

	rr = do(t, h, http.MethodGet, "/invoices/999", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/invoices/abc", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPaymentEndpoint(t *testing.T) {
	f := newFixture(t)
	h := f.router()

	body := fmt.Sprintf(`{
		"type": "INBOUND",
		"date": "2024-06-03",
		"contactId": %d,
		"bankAccountId": %d,
		"amount": "75.50",
		"currency": "USD",
		"reference": "PAY-HTTP-1"
	}`, f.seeded.Contacts["Acme"], f.account("1000"))
	rr := do(t, h, http.MethodPost, "/payments", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created posting.PaymentResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Len(t, created.Journal.Lines, 2)
	assert.Equal(t, f.account("1000"), created.Journal.Lines[0].AccountID)
	assert.Equal(t, "75.5", created.Journal.Lines[0].Amount.String())
}
