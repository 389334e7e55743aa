package roster

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/provisio-hr/provisio/internal/platform/httpx"
)

// Handler serves the roster dashboard and installment endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the roster endpoints on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/overview", h.Overview)
	r.Post("/periods/{periodID}/installments", h.AddInstallment)
	r.Delete("/installments/{installmentID}", h.RemoveInstallment)
}

type installmentRequest struct {
	Month string `json:"month" validate:"required"`
	Days  string `json:"days"`
	Note  string `json:"note" validate:"omitempty,max=500"`
}

type installmentErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	EntitledDays  string `json:"entitled_days,omitempty"`
	DaysUsed      string `json:"days_used,omitempty"`
	DaysAvailable string `json:"days_available,omitempty"`
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Overview(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("roster overview failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Erro Interno", "Não foi possível carregar o painel.")
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) AddInstallment(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Requisição Inválida", "Período inválido.")
		return
	}

	var req installmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Requisição Inválida", "Corpo JSON inválido.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Requisição Inválida", "Informe o mês da parcela.")
		return
	}

	view, err := h.service.AddInstallment(r.Context(), periodID, req.Month, req.Days, req.Note)
	if err != nil {
		h.respondInstallmentError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) RemoveInstallment(w http.ResponseWriter, r *http.Request) {
	installmentID, err := strconv.ParseInt(chi.URLParam(r, "installmentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Requisição Inválida", "Parcela inválida.")
		return
	}

	view, err := h.service.RemoveInstallment(r.Context(), installmentID)
	if err != nil {
		h.respondInstallmentError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) respondInstallmentError(w http.ResponseWriter, err error) {
	var capErr *CapacityError
	switch {
	case errors.As(err, &capErr):
		httpx.JSON(w, http.StatusUnprocessableEntity, installmentErrorResponse{
			Error:         "capacity_exceeded",
			Message:       capErr.Error(),
			EntitledDays:  capErr.Entitled.StringFixed(1),
			DaysUsed:      capErr.Used.StringFixed(1),
			DaysAvailable: capErr.Available.StringFixed(1),
		})
	case errors.Is(err, ErrBadMonth):
		httpx.JSON(w, http.StatusUnprocessableEntity, installmentErrorResponse{
			Error:   "invalid_month",
			Message: "Mês inválido. Use o formato YYYY-MM.",
		})
	case errors.Is(err, ErrBadDays):
		httpx.JSON(w, http.StatusUnprocessableEntity, installmentErrorResponse{
			Error:   "invalid_days",
			Message: "Dias inválido.",
		})
	case errors.Is(err, ErrPeriodNotFound):
		httpx.Problem(w, http.StatusNotFound, "Não Encontrado", "Período não encontrado.")
	case errors.Is(err, ErrInstallmentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Não Encontrado", "Parcela não encontrada.")
	default:
		h.logger.Error("installment operation failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Erro Interno", "Operação falhou. Tente novamente.")
	}
}
