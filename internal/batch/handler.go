package batch

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cacaoflow/cacaoflow/internal/equipment"
	"github.com/cacaoflow/cacaoflow/internal/platform/httpx"
	"github.com/cacaoflow/cacaoflow/internal/shared"
)

// TransitionObserver records transition attempt metrics.
type TransitionObserver interface {
	ObserveTransition(action, result string)
}

// Handler wires HTTP endpoints for the batch pipeline.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  TransitionObserver
}

// NewHandler constructs a batch handler.
func NewHandler(logger *slog.Logger, service *Service, metrics TransitionObserver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New(), metrics: metrics}
}

// MountRoutes registers batch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleListActive)
	r.Post("/", h.handleIntake)
	r.Get("/dried", h.handleListDried)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/proceed", h.handleProceed)
	r.Post("/{id}/grade", h.handleGrade)
	r.Post("/{id}/pickup", h.handlePickup)
}

// MountProcessRoutes registers process routes.
func (h *Handler) MountProcessRoutes(r chi.Router) {
	r.Get("/", h.handleListProcesses)
	r.Post("/{id}/complete", h.handleComplete)
}

type intakeRequest struct {
	HarvestDate string  `json:"harvest_date" validate:"required"`
	WeightKg    float64 `json:"weight_kg" validate:"required,gt=0"`
	Supplier    string  `json:"supplier" validate:"required"`
}

type gradeRequest struct {
	GradeA    int `json:"grade_a" validate:"min=0"`
	GradeB    int `json:"grade_b" validate:"min=0"`
	Reject    int `json:"reject" validate:"min=0"`
	BoxesUsed int `json:"boxes_used" validate:"min=0"`
}

func (h *Handler) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	harvestDate, err := time.Parse("2006-01-02", req.HarvestDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "harvest_date must be YYYY-MM-DD")
		return
	}

	created, err := h.service.Intake(r.Context(), IntakeInput{
		HarvestDate: harvestDate,
		WeightKg:    req.WeightKg,
		Supplier:    req.Supplier,
		ActorID:     shared.ActorFromContext(r.Context()),
	})
	h.observe("intake", err)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleProceed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	process, err := h.service.Proceed(r.Context(), id, shared.ActorFromContext(r.Context()))
	h.observe("proceed", err)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, process)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.Complete(r.Context(), id, shared.ActorFromContext(r.Context()))
	h.observe("complete", err)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req gradeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	grading, err := h.service.Grade(r.Context(), GradeInput{
		BatchID:   id,
		GradeA:    req.GradeA,
		GradeB:    req.GradeB,
		Reject:    req.Reject,
		BoxesUsed: req.BoxesUsed,
		ActorID:   shared.ActorFromContext(r.Context()),
	})
	h.observe("grade", err)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grading)
}

func (h *Handler) handlePickup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.Pickup(r.Context(), id, shared.ActorFromContext(r.Context()))
	h.observe("pickup", err)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	b, inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batch": b, "inventory": inv})
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListActive(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batches": rows})
}

func (h *Handler) handleListDried(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListDried(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batches": rows})
}

func (h *Handler) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListProcesses(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"processes": rows})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) observe(action string, err error) {
	if h.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		var shortfall *equipment.ShortfallError
		if errors.As(err, &shortfall) {
			result = "shortfall"
		}
	}
	h.metrics.ObserveTransition(action, result)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var (
		validation *ValidationError
		shortfall  *equipment.ShortfallError
	)
	switch {
	case errors.As(err, &validation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validation.Error())
	case errors.As(err, &shortfall):
		httpx.ProblemWith(w, http.StatusConflict, "Insufficient Equipment", shortfall.Error(), shortfall.Fields())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInvalidProcessStatus):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrBatchNotFound), errors.Is(err, ErrProcessNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, equipment.ErrEquipmentNotFound), errors.Is(err, equipment.ErrInventoryNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("batch request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
