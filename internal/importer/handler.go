package importer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/provisio-hr/provisio/internal/platform/httpx"
)

// Handler exposes the import pipeline over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	maxBytes int64
}

// NewHandler constructs the import handler. maxBytes caps upload size.
func NewHandler(logger *slog.Logger, service *Service, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Handler{logger: logger, service: service, maxBytes: maxBytes}
}

// Upload accepts the payroll export either as a multipart file under
// "file" or as pasted text under "content", parses it and returns the
// reconciliation report with the batch token for the confirm step.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	content, filename, err := h.readUpload(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	result, err := h.service.Upload(r.Context(), content, filename)
	if err != nil {
		h.respondUploadError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

// Confirm applies a parked batch under the operator's flags.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var opts Options
	if err := httpx.DecodeJSON(r, &opts); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "corpo da requisição inválido")
		return
	}

	summary, err := h.service.Confirm(r.Context(), token, opts)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			httpx.Problem(w, http.StatusGone, "Sessão Expirada", "Sessão expirada. Faça o upload novamente.")
			return
		}
		h.logger.Error("confirm import", slog.String("token", token), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, confirmResponse{
		Summary: summary,
		Message: fmt.Sprintf("Importação concluída! %d adicionados, %d inativados, %d atualizados.",
			summary.New, summary.Deactivated, summary.Updated),
	})
}

// Discard drops a parked batch without committing.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.service.Discard(r.Context(), token); err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			httpx.Problem(w, http.StatusGone, "Sessão Expirada", "Sessão expirada. Faça o upload novamente.")
			return
		}
		h.logger.Error("discard import", slog.String("token", token), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmResponse struct {
	Summary
	Message string `json:"message"`
}

func (h *Handler) respondUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyUpload):
		httpx.Problem(w, http.StatusBadRequest, "Upload Vazio", "Selecione um arquivo ou cole o conteúdo do CSV.")
	case errors.Is(err, ErrNoValidRows):
		httpx.Problem(w, http.StatusUnprocessableEntity, "CSV Inválido", "Nenhuma linha válida encontrada no CSV. Verifique o formato.")
	case errors.Is(err, ErrMalformedInput):
		httpx.Problem(w, http.StatusBadRequest, "CSV Inválido", "Erro ao processar o CSV.")
	default:
		h.logger.Error("upload import", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) readUpload(r *http.Request) (content, filename string, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, h.maxBytes)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			return "", "", fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer func(f multipart.File) { _ = f.Close() }(file)
			data, err := io.ReadAll(file)
			if err != nil {
				return "", "", fmt.Errorf("%w: read upload: %v", httpx.ErrValidation, err)
			}
			return string(data), header.Filename, nil
		case errors.Is(err, http.ErrMissingFile):
			// fall through to the pasted-content field
		default:
			return "", "", fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
	}

	return r.FormValue("content"), "", nil
}
