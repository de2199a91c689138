package auditlog

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cacaoflow/cacaoflow/internal/platform/httpx"
)

// Handler exposes the filtered log views consumed by reporting screens.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs an audit log handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers log routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleTimeline)
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	var f TimelineFilters
	if raw := q.Get("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			t := LogType(strings.TrimSpace(part))
			if !ValidType(t) {
				return TimelineFilters{}, ErrUnknownLogType
			}
			f.Types = append(f.Types, t)
		}
	}
	if sev := q.Get("severity"); sev != "" {
		f.Severity = Severity(sev)
	}
	if raw := q.Get("batch_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return TimelineFilters{}, err
		}
		f.BatchID = id
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return TimelineFilters{}, err
		}
		f.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return TimelineFilters{}, err
		}
		// include the whole day
		f.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if raw := q.Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			f.Page = page
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil {
			f.PageSize = size
		}
	}
	return f, nil
}
