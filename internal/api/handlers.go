package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gwi.com/divination/internal/core"
	"gwi.com/divination/internal/store"
)

type APIHandler struct {
	readings *core.ReadingService
	logger   *slog.Logger
}

func NewAPIHandler(rs *core.ReadingService, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{readings: rs, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeBody accepts an empty body as the zero request.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeError maps domain errors to status codes. Unexpected errors are logged
// and reported with a generic message.
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, core.ErrInvalidCardCount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrUnknownSign),
		errors.Is(err, core.ErrUnknownLayout),
		errors.Is(err, core.ErrUnknownReading):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Reading not found", http.StatusNotFound)
	default:
		h.logger.Error(fallback, "error", err, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) AIStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.readings.AIStatus())
}

func (h *APIHandler) LayoutsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.readings.Layouts())
}

func (h *APIHandler) TarotReadingHandler(w http.ResponseWriter, r *http.Request) {
	var req core.TarotRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	reading, err := h.readings.NewTarotReading(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "Failed to create tarot reading")
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

func (h *APIHandler) IChingReadingHandler(w http.ResponseWriter, r *http.Request) {
	var req core.IChingRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	reading, err := h.readings.NewIChingReading(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "Failed to create I Ching reading")
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

func (h *APIHandler) ZodiacReadingHandler(w http.ResponseWriter, r *http.Request) {
	var req core.ZodiacRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Sign == "" && req.Month == 0 && req.Day == 0 {
		http.Error(w, "Either sign or month and day are required", http.StatusBadRequest)
		return
	}

	reading, err := h.readings.NewZodiacReading(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "Failed to create zodiac reading")
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

func (h *APIHandler) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	t, err := core.ParseReadingType(chi.URLParam(r, "readingType"))
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	readings, err := h.readings.History(r.Context(), t)
	if err != nil {
		h.writeError(w, r, err, "Failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func (h *APIHandler) DeleteReadingHandler(w http.ResponseWriter, r *http.Request) {
	t, err := core.ParseReadingType(chi.URLParam(r, "readingType"))
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	if err := h.readings.RemoveReading(r.Context(), t, chi.URLParam(r, "readingID")); err != nil {
		h.writeError(w, r, err, "Failed to delete reading")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	t, err := core.ParseReadingType(chi.URLParam(r, "readingType"))
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	if err := h.readings.ClearHistory(r.Context(), t); err != nil {
		h.writeError(w, r, err, "Failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ClearAllHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.readings.ClearAllHistory(r.Context()); err != nil {
		h.writeError(w, r, err, "Failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
