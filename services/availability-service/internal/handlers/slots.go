package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/md-rashed-zaman/slotwise/libs/httpx"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

type SlotFinder interface {
	Slots(ctx context.Context, q engine.Query) (engine.Result, error)
	Day(ctx context.Context, providerID string, date tz.Date) (engine.DayView, error)
}

type SlotsHandler struct {
	finder SlotFinder
	logger *slog.Logger
}

func NewSlotsHandler(finder SlotFinder, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{finder: finder, logger: logger}
}

// Mount registers the public routes; limit, when set, guards all of them.
func (h *SlotsHandler) Mount(r chi.Router, limit httpx.Middleware) {
	r.Route("/api/v1/public", func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Get("/slots", h.Slots)
		r.Get("/providers/{providerID}/slots", h.Slots)
		r.Get("/providers/{providerID}/availability", h.Availability)
	})
}

// Slots serves GET /api/v1/public/slots?providerId=&serviceType=&daysAhead=&startDate=
// and its path form /providers/{providerID}/slots.
func (h *SlotsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Slots"
	log := h.logger.With("op", op, "request_id", httpx.RequestIDFromContext(r.Context()))

	q, err := parseSlotsQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.finder.Slots(r.Context(), q)
	if err != nil {
		h.fail(w, r, log, err, "failed to resolve slots")
		return
	}
	log.Debug("slots resolved", "provider_id", q.ProviderID, "count", len(res.Slots))
	render.JSON(w, r, toSlotsResponse(res))
}

// Availability serves GET /api/v1/public/providers/{providerID}/availability?date=YYYY-MM-DD.
func (h *SlotsHandler) Availability(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Availability"
	log := h.logger.With("op", op, "request_id", httpx.RequestIDFromContext(r.Context()))

	providerID, err := providerIDParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "date is required")
		return
	}
	date, err := tz.ParseDate(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	view, err := h.finder.Day(r.Context(), providerID, date)
	if err != nil {
		h.fail(w, r, log, err, "failed to resolve availability")
		return
	}
	render.JSON(w, r, toDayResponse(view))
}

func (h *SlotsHandler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, engine.ErrInvalidQuery):
		writeError(w, r, http.StatusBadRequest, "invalid query")
	case errors.Is(err, engine.ErrProviderNotFound):
		writeError(w, r, http.StatusNotFound, "provider not found")
	case errors.Is(err, context.Canceled):
		log.Info("request cancelled", "err", err)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", "err", err)
		writeError(w, r, http.StatusServiceUnavailable, "request timed out")
	default:
		log.Error(msg, "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func parseSlotsQuery(r *http.Request) (engine.Query, error) {
	providerID, err := providerIDParam(r)
	if err != nil {
		return engine.Query{}, err
	}
	v := r.URL.Query()
	q := engine.Query{ProviderID: providerID, ServiceType: strings.TrimSpace(v.Get("serviceType"))}

	if raw := strings.TrimSpace(v.Get("daysAhead")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return engine.Query{}, errors.New("daysAhead must be a positive integer")
		}
		q.DaysAhead = n
	}
	if raw := strings.TrimSpace(v.Get("startDate")); raw != "" {
		d, err := tz.ParseDate(raw)
		if err != nil {
			return engine.Query{}, errors.New("startDate must be YYYY-MM-DD")
		}
		q.StartDate = d
	}
	return q, nil
}

func providerIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "providerID"))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("providerId"))
	}
	if id == "" {
		return "", errors.New("providerId is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", errors.New("providerId must be a UUID")
	}
	return id, nil
}
