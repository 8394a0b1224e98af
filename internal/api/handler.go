package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"medshelf/m/domain"
	"medshelf/m/internal/gate"
	"medshelf/m/internal/metrics"
	"medshelf/m/internal/repository"
)

const maxBodyBytes = 64 << 10

// Store is the repository surface the handlers need.
type Store interface {
	Add(ctx context.Context, c domain.Candidate) (domain.Medicine, error)
	List(ctx context.Context, query string) ([]domain.Medicine, error)
	Get(ctx context.Context, id int64) (domain.Medicine, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	store   Store
	gate    *gate.Gate
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// New constructs a Handler. A nil recorder disables /metrics.
func New(store Store, g *gate.Gate, m *metrics.Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, gate: g, metrics: m, logger: logger}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/medicines", func(r chi.Router) {
		r.Get("/", h.listMedicines)
		r.Post("/", h.addMedicine)
		r.Get("/{id}", h.getMedicine)
		r.Delete("/{id}", h.deleteMedicine)
	})

	r.Get("/form/quantity", h.quantityField)

	r.Route("/gate", func(r chi.Router) {
		r.Post("/", h.unlock)
		r.Get("/", h.revealed)
	})

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Medicine handlers

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	meds, err := h.store.List(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch medicines")
		return
	}
	respondJSON(w, http.StatusOK, meds)
}

func (h *Handler) addMedicine(w http.ResponseWriter, r *http.Request) {
	var req domain.Candidate
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	med, err := h.store.Add(r.Context(), req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to add medicine")
		return
	}
	respondJSON(w, http.StatusCreated, med)
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := medicineID(w, r)
	if !ok {
		return
	}
	med, err := h.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "medicine not found")
	case err != nil:
		respondError(w, http.StatusInternalServerError, "unable to fetch medicine")
	default:
		respondJSON(w, http.StatusOK, med)
	}
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := medicineID(w, r)
	if !ok {
		return
	}
	removed, err := h.store.Delete(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete medicine")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": removed})
}

func medicineID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return 0, false
	}
	return id, true
}

func (h *Handler) quantityField(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, domain.QuantityFieldFor(r.URL.Query().Get("dosage_form")))
}

// Gate handlers. The gate only decides whether the add form is shown;
// no other endpoint looks at the ticket.

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ticket, err := h.gate.Unlock(req.Passphrase)
	if errors.Is(err, gate.ErrWrongPassphrase) {
		respondError(w, http.StatusUnauthorized, "incorrect passphrase")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to issue ticket")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"ticket": ticket})
}

func (h *Handler) revealed(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"revealed": h.gate.Revealed(r.URL.Query().Get("ticket"))})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
