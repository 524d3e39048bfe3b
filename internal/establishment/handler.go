package establishment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/college-erp/internal"
	"github.com/frahmantamala/college-erp/internal/transport"
	"github.com/frahmantamala/college-erp/pkg/logger"
)

type ServiceAPI interface {
	CreateEmployee(ctx context.Context, dto CreateEmployeeDTO) (*EmployeeResult, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var dto CreateEmployeeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.CreateEmployee(r.Context(), dto)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			h.Logger.Warn("create employee failed", "code", appErr.Code, "error", appErr.Message)
			status, body := appErr.ToHTTPResponse()
			h.WriteJSON(w, status, body)
			return
		}
		if _, ok := err.(ValidationError); ok {
			h.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("create employee failed", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}
