package user

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/college-erp/internal"
	"github.com/frahmantamala/college-erp/internal/transport"
	"github.com/frahmantamala/college-erp/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateUserDTO) (*Profile, error)
	GetByID(ctx context.Context, userID string) (*Profile, error)
	List(ctx context.Context, params ListParams) ([]*Profile, int64, error)
	Update(ctx context.Context, userID string, dto UpdateUserDTO) (*Profile, error)
	Unlock(ctx context.Context, userID string) error
	SoftDelete(ctx context.Context, userID string) error
	HardDelete(ctx context.Context, userID string) error
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

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err, "create user failed")
		return
	}

	h.WriteJSON(w, http.StatusCreated, profile)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "get user failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	profiles, total, err := h.Service.List(r.Context(), ListParams{
		Search:   q.Get("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.writeServiceError(w, err, "list users failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":  profiles,
		"total": total,
	})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var dto UpdateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.writeServiceError(w, err, "update user failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Unlock(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "unlock user failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Account unlocked",
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "delete user failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PurgeUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.HardDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "purge user failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, logMessage string) {
	if appErr, ok := internal.IsAppError(err); ok {
		h.Logger.Warn(logMessage, "code", appErr.Code, "error", appErr.Message)
		status, body := appErr.ToHTTPResponse()
		h.WriteJSON(w, status, body)
		return
	}
	if _, ok := err.(ValidationError); ok {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Logger.Error(logMessage, "error", err)
	h.WriteError(w, http.StatusInternalServerError, "internal server error")
}
