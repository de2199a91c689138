package weather

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cacaoflow/cacaoflow/internal/platform/httpx"
)

// Handler wires weather endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers weather routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/latest", h.handleLatest)
	r.Get("/history", h.handleHistory)
	r.Post("/refresh", h.handleRefresh)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	obs, err := h.service.Latest(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoObservations) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("latest weather", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, obs)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("weather history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"observations": history})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	obs, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.Error("refresh weather", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Unavailable", "weather api request failed")
		return
	}
	httpx.JSON(w, http.StatusCreated, obs)
}
