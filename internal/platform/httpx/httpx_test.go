package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{fmt.Errorf("%w: bad field", shared.ErrValidation), http.StatusBadRequest, KindValidation},
		{fmt.Errorf("wrapped: %w", shared.ErrUnbalanced), http.StatusUnprocessableEntity, KindUnbalanced},
		{shared.ErrMappingNotFound, http.StatusUnprocessableEntity, KindMapping},
		{shared.ErrNotFound, http.StatusNotFound, KindNotFound},
		{shared.ErrConflict, http.StatusConflict, KindConflict},
		{errors.New("pq: relation journals does not exist"), http.StatusInternalServerError, KindInternal},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

		var p ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
		assert.Equal(t, "urn:odyssey-ledger:problem:"+tc.kind, p.Type)
		assert.Equal(t, tc.status, p.Status)
	}
}

func TestJSONKeepsPlainContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusCreated, map[string]int{"id": 1})
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":1}`, rr.Body.String())
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	var p ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "Internal Error", p.Title)
	assert.Empty(t, p.Detail)
	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
}

type bindTarget struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=1"`
}

func TestBind(t *testing.T) {
	var dst bindTarget
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","count":2}`))
	require.NoError(t, Bind(req, &dst))
	assert.Equal(t, bindTarget{Name: "x", Count: 2}, dst)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"count":0}`))
	err := Bind(req, &bindTarget{})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "bindTarget.Count failed gte; bindTarget.Name failed required")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	require.ErrorIs(t, Bind(req, &bindTarget{}), shared.ErrValidation)
}

func TestPathID(t *testing.T) {
	build := func(raw string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", raw)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	id, err := PathID(build("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"0", "-3", "abc", ""} {
		_, err := PathID(build(raw), "id")
		assert.ErrorIs(t, err, shared.ErrValidation, raw)
	}
}

func TestDates(t *testing.T) {
	got, err := ParseDate("date", " 2024-02-29 ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), *got)

	got, err = ParseDate("date", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDate("date", "2023-02-29")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = RequireDate("date", "")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestQueryInt64(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?accountId=7&bad=x", nil)
	v, err := QueryInt64(req, "accountId")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = QueryInt64(req, "missing")
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = QueryInt64(req, "bad")
	require.ErrorIs(t, err, shared.ErrValidation)
}
