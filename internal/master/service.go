package master

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/college-erp/internal"
	masterDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/master"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

// Service manages reference data: countries, states and designations. The
// designation permission map feeds the login claims, so designation writes
// are fully audited.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListCountries(ctx context.Context) ([]masterDatamodel.Country, error) {
	countries, err := s.repo.ListCountries()
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return countries, nil
}

func (s *Service) CreateCountry(ctx context.Context, dto CountryDTO) (*masterDatamodel.Country, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	actor := internal.ActorFromContext(ctx)
	now := time.Now()

	c := &masterDatamodel.Country{
		Name:     strings.TrimSpace(dto.Name),
		Code:     strings.ToUpper(strings.TrimSpace(dto.Code)),
		IsActive: true,
	}
	c.CreatedBy = actor.Ref()
	c.CreatedAt = now
	c.UpdatedBy = actor.Ref()
	c.UpdatedAt = now

	if err := s.repo.CreateCountry(c); err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return c, nil
}

func (s *Service) ListStates(ctx context.Context, countryID int64) ([]masterDatamodel.State, error) {
	states, err := s.repo.ListStates(countryID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return states, nil
}

func (s *Service) CreateState(ctx context.Context, dto StateDTO) (*masterDatamodel.State, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	actor := internal.ActorFromContext(ctx)
	now := time.Now()

	st := &masterDatamodel.State{
		CountryID: dto.CountryID,
		Name:      strings.TrimSpace(dto.Name),
		Code:      strings.ToUpper(strings.TrimSpace(dto.Code)),
		IsActive:  true,
	}
	st.CreatedBy = actor.Ref()
	st.CreatedAt = now
	st.UpdatedBy = actor.Ref()
	st.UpdatedAt = now

	if err := s.repo.CreateState(st); err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return st, nil
}

func (s *Service) ListDesignations(ctx context.Context) ([]userDatamodel.Designation, error) {
	designations, err := s.repo.ListDesignations()
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return designations, nil
}

func (s *Service) GetDesignation(ctx context.Context, designationID int64) (*userDatamodel.Designation, error) {
	d, err := s.repo.GetDesignation(designationID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return d, nil
}

func (s *Service) CreateDesignation(ctx context.Context, dto DesignationDTO) (*userDatamodel.Designation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	actor := internal.ActorFromContext(ctx)
	now := time.Now()

	d := &userDatamodel.Designation{
		Name:        strings.TrimSpace(dto.Name),
		Code:        strings.ToUpper(strings.TrimSpace(dto.Code)),
		Description: dto.Description,
		Permissions: dto.Permissions,
		IsActive:    true,
	}
	if d.Permissions == nil {
		d.Permissions = userDatamodel.PermissionMap{}
	}
	d.CreatedBy = actor.Ref()
	d.CreatedAt = now
	d.UpdatedBy = actor.Ref()
	d.UpdatedAt = now

	if err := s.repo.CreateDesignation(d, actor); err != nil {
		return nil, s.mapRepositoryError(err)
	}

	s.logger.Info("designation created", "designation_id", d.DesignationID, "created_by", actor.Ref())
	return d, nil
}

func (s *Service) UpdateDesignation(ctx context.Context, designationID int64, dto UpdateDesignationDTO) (*userDatamodel.Designation, error) {
	d, err := s.repo.GetDesignation(designationID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}

	actor := internal.ActorFromContext(ctx)
	fields := map[string]interface{}{}

	if dto.Name != nil {
		fields["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.Description != nil {
		fields["description"] = *dto.Description
	}
	if dto.Permissions != nil {
		fields["permissions"] = *dto.Permissions
	}
	if dto.IsActive != nil {
		fields["is_active"] = *dto.IsActive
	}

	if len(fields) == 0 {
		return d, nil
	}

	fields["updated_by"] = actor.Ref()
	fields["updated_at"] = time.Now()

	if err := s.repo.UpdateDesignation(d, fields, actor); err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return s.repo.GetDesignation(designationID)
}

func (s *Service) DeleteDesignation(ctx context.Context, designationID int64) error {
	actor := internal.ActorFromContext(ctx)
	if err := s.repo.SoftDeleteDesignation(designationID, actor); err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger.Info("designation soft deleted", "designation_id", designationID, "deleted_by", actor.Ref())
	return nil
}

func (s *Service) PurgeDesignation(ctx context.Context, designationID int64) error {
	actor := internal.ActorFromContext(ctx)
	if err := s.repo.HardDeleteDesignation(designationID, actor); err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger.Warn("designation hard deleted", "designation_id", designationID, "deleted_by", actor.Ref())
	return nil
}

func (s *Service) mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return internal.NewNotFoundError("Record not found", internal.ErrCodeMasterNotFound)
	case errors.Is(err, ErrDuplicate):
		return internal.NewConflictError("A record with that name or code already exists", internal.ErrCodeDuplicateRecord)
	default:
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		return internal.NewInternalError("master repository failure", err)
	}
}
