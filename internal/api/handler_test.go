package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"medshelf/m/domain"
	"medshelf/m/internal/config"
	"medshelf/m/internal/database"
	"medshelf/m/internal/gate"
	"medshelf/m/internal/metrics"
	"medshelf/m/internal/repository"
)

type testServer struct {
	handler http.Handler
	handle  *database.Handle
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	h, err := database.Open(context.Background(), database.Options{Name: "MedicineDatabase", Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	hashed, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	g := gate.New(config.GateConfig{PassphraseHash: string(hashed), Secret: "test", TicketTTL: "1h"})

	rec := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.New(h, repository.WithMetrics(rec), repository.WithLogger(logger))
	return testServer{handler: New(repo, g, rec, logger).Router(), handle: h}
}

func (s testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

const crocinJSON = `{"brandName":"Crocin","saltName":"Paracetamol","companyName":"GSK","dosageForm":"tablet","quantity":"10","price":25}`

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestListEmptyReturnsArray(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/medicines", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestAddListGetDelete(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/medicines", crocinJSON)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var added domain.Medicine
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	assert.Equal(t, int64(1), added.ID)
	assert.Equal(t, domain.UnitTablets, added.Unit)
	assert.Equal(t, float64(10), added.Quantity)

	rr = s.do(t, http.MethodGet, "/medicines?query=PARA", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var found []domain.Medicine
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "Crocin", found[0].BrandName)

	rr = s.do(t, http.MethodGet, "/medicines?query=syrup", "")
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/medicines/1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodDelete, "/medicines/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted":true}`, rr.Body.String())

	rr = s.do(t, http.MethodDelete, "/medicines/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted":false}`, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/medicines/1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddValidationError(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/medicines", `{"brandName":"Crocin","saltName":"Paracetamol","companyName":"GSK","dosageForm":"tablet","quantity":"10","price":"cheap"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "price", body["field"])
	assert.NotEmpty(t, body["error"])

	rr = s.do(t, http.MethodGet, "/medicines", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestAddRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/medicines", `{"brandName":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/medicines", `{"unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddRejectsOversizedBody(t *testing.T) {
	s := newTestServer(t)
	body := `{"brandName":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rr := s.do(t, http.MethodPost, "/medicines", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodGet, "/medicines", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestInvalidID(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/medicines/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/medicines/abc", "").Code)
}

func TestStorageFailureIs500(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.handle.Close())

	rr := s.do(t, http.MethodGet, "/medicines", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	rr = s.do(t, http.MethodPost, "/medicines", crocinJSON)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	rr = s.do(t, http.MethodDelete, "/medicines/1", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestQuantityField(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/form/quantity?dosage_form=tablet", "")
	assert.JSONEq(t, `{"visible":true,"label":"No. of tablets","placeholder":"e.g., 10","step":"1","clearValue":false}`, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/form/quantity?dosage_form=syrup", "")
	assert.JSONEq(t, `{"visible":true,"label":"Volume (ml)","placeholder":"e.g., 5","step":"any","clearValue":false}`, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/form/quantity", "")
	assert.JSONEq(t, `{"visible":false,"clearValue":true}`, rr.Body.String())
}

func TestGate(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/gate", `{"passphrase":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodPost, "/gate", `{"passphrase":"open sesame"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotEmpty(t, body["ticket"])

	rr = s.do(t, http.MethodGet, "/gate?ticket="+body["ticket"], "")
	assert.JSONEq(t, `{"revealed":true}`, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/gate?ticket=forged", "")
	assert.JSONEq(t, `{"revealed":false}`, rr.Body.String())
}

func TestAddDoesNotRequireTicket(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/medicines", crocinJSON)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/medicines", "")

	rr := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `medshelf_repository_operations_total{op="list",outcome="ok"} 1`)
}

func TestRequestLoggerWritesRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := requestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "/brew", record["path"])
	assert.Equal(t, float64(http.StatusTeapot), record["status"])
}
