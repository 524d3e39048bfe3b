package master

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/college-erp/internal"
	masterDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/master"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/college-erp/internal/transport"
	"github.com/frahmantamala/college-erp/pkg/logger"
)

type ServiceAPI interface {
	ListCountries(ctx context.Context) ([]masterDatamodel.Country, error)
	CreateCountry(ctx context.Context, dto CountryDTO) (*masterDatamodel.Country, error)
	ListStates(ctx context.Context, countryID int64) ([]masterDatamodel.State, error)
	CreateState(ctx context.Context, dto StateDTO) (*masterDatamodel.State, error)
	ListDesignations(ctx context.Context) ([]userDatamodel.Designation, error)
	GetDesignation(ctx context.Context, designationID int64) (*userDatamodel.Designation, error)
	CreateDesignation(ctx context.Context, dto DesignationDTO) (*userDatamodel.Designation, error)
	UpdateDesignation(ctx context.Context, designationID int64, dto UpdateDesignationDTO) (*userDatamodel.Designation, error)
	DeleteDesignation(ctx context.Context, designationID int64) error
	PurgeDesignation(ctx context.Context, designationID int64) error
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

func (h *Handler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.Service.ListCountries(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list countries failed")
		return
	}
	h.WriteJSON(w, http.StatusOK, countries)
}

func (h *Handler) CreateCountry(w http.ResponseWriter, r *http.Request) {
	var dto CountryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	country, err := h.Service.CreateCountry(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err, "create country failed")
		return
	}
	h.WriteJSON(w, http.StatusCreated, country)
}

func (h *Handler) ListStates(w http.ResponseWriter, r *http.Request) {
	countryID, _ := strconv.ParseInt(r.URL.Query().Get("country_id"), 10, 64)

	states, err := h.Service.ListStates(r.Context(), countryID)
	if err != nil {
		h.writeServiceError(w, err, "list states failed")
		return
	}
	h.WriteJSON(w, http.StatusOK, states)
}

func (h *Handler) CreateState(w http.ResponseWriter, r *http.Request) {
	var dto StateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := h.Service.CreateState(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err, "create state failed")
		return
	}
	h.WriteJSON(w, http.StatusCreated, state)
}

func (h *Handler) ListDesignations(w http.ResponseWriter, r *http.Request) {
	designations, err := h.Service.ListDesignations(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list designations failed")
		return
	}
	h.WriteJSON(w, http.StatusOK, designations)
}

func (h *Handler) GetDesignation(w http.ResponseWriter, r *http.Request) {
	id, err := designationID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid designation id")
		return
	}

	d, err := h.Service.GetDesignation(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get designation failed")
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) CreateDesignation(w http.ResponseWriter, r *http.Request) {
	var dto DesignationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.CreateDesignation(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err, "create designation failed")
		return
	}
	h.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) UpdateDesignation(w http.ResponseWriter, r *http.Request) {
	id, err := designationID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid designation id")
		return
	}

	var dto UpdateDesignationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.UpdateDesignation(r.Context(), id, dto)
	if err != nil {
		h.writeServiceError(w, err, "update designation failed")
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) DeleteDesignation(w http.ResponseWriter, r *http.Request) {
	id, err := designationID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid designation id")
		return
	}

	if err := h.Service.DeleteDesignation(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "delete designation failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PurgeDesignation(w http.ResponseWriter, r *http.Request) {
	id, err := designationID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid designation id")
		return
	}

	if err := h.Service.PurgeDesignation(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "purge designation failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func designationID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
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
