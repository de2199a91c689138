package equipment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cacaoflow/cacaoflow/internal/platform/httpx"
	"github.com/cacaoflow/cacaoflow/internal/shared"
)

// Handler wires HTTP endpoints for the equipment ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs an equipment handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers equipment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Post("/{id}/restock", h.handleRestock)
	r.Post("/{id}/deduct", h.handleDeduct)
}

type createTypeRequest struct {
	Name    string `json:"name" validate:"required"`
	TypeTag string `json:"type_tag" validate:"required,oneof=sack rack boxes"`
}

type restockRequest struct {
	Qty      int    `json:"qty" validate:"required,min=1"`
	Supplier string `json:"supplier" validate:"required"`
}

type deductRequest struct {
	Qty int `json:"qty" validate:"required,min=1"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list equipment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"equipment": list})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	et, err := h.service.CreateType(r.Context(), req.Name, TypeTag(req.TypeTag))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, et)
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid equipment id")
		return
	}
	var req restockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.Restock(r.Context(), id, req.Qty, req.Supplier, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) handleDeduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid equipment id")
		return
	}
	var req deductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	receipt, err := h.service.Deduct(r.Context(), id, req.Qty, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var shortfall *ShortfallError
	switch {
	case errors.As(err, &shortfall):
		httpx.ProblemWith(w, http.StatusConflict, "Insufficient Equipment", shortfall.Error(), shortfall.Fields())
	case errors.Is(err, ErrEquipmentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInventoryNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidTag):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("equipment request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
