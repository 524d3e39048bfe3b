package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/college-erp/internal"
	"github.com/frahmantamala/college-erp/internal/auth"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/college-erp/internal/core/events"
)

// Service handles administrative user management: onboarding accounts,
// profile updates, soft delete with an audit trail, and administrative
// unlock of permanently locked accounts.
type Service struct {
	repo      Repository
	passwords auth.PasswordManager
	events    *events.EventBus
	logger    *slog.Logger
}

func NewService(repo Repository, passwords auth.PasswordManager, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		passwords: passwords,
		events:    bus,
		logger:    logger,
	}
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*Profile, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	actor := internal.ActorFromContext(ctx)
	now := time.Now()

	u := &userDatamodel.User{
		UserID:        auth.NormalizeIdentifier(dto.UserID),
		Username:      strings.TrimSpace(dto.Username),
		Email:         strings.ToLower(strings.TrimSpace(dto.Email)),
		FirstName:     dto.FirstName,
		LastName:      dto.LastName,
		PhoneNumber:   dto.PhoneNumber,
		DesignationID: dto.DesignationID,
		IsActive:      true,
		IsStaff:       dto.IsStaff,
		IsSuperuser:   dto.IsSuperuser,
		MaxOTPTry:     userDatamodel.DefaultMaxOTPTry,
		DateJoined:    now,
	}
	u.CreatedBy = actor.Ref()
	u.CreatedAt = now
	u.UpdatedBy = actor.Ref()
	u.UpdatedAt = now

	hash, err := s.passwords.Hash(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}
	u.PasswordHash = hash

	if err := s.repo.Create(u, actor); err != nil {
		return nil, s.mapRepositoryError(err)
	}

	s.logger.Info("user created", "user_id", u.UserID, "created_by", actor.Ref())
	s.events.Publish(ctx, events.NewSecurityEvent(events.TypeUserCreated, map[string]interface{}{
		"user_id":    u.UserID,
		"created_by": actor.Ref(),
	}))

	return ProfileFromDataModel(u), nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.repo.GetByID(auth.NormalizeIdentifier(userID))
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return ProfileFromDataModel(u), nil
}

func (s *Service) List(ctx context.Context, params ListParams) ([]*Profile, int64, error) {
	rows, total, err := s.repo.List(params)
	if err != nil {
		return nil, 0, internal.NewInternalError("failed to list users", err)
	}

	profiles := make([]*Profile, 0, len(rows))
	for i := range rows {
		profiles = append(profiles, ProfileFromDataModel(&rows[i]))
	}
	return profiles, total, nil
}

func (s *Service) Update(ctx context.Context, userID string, dto UpdateUserDTO) (*Profile, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(auth.NormalizeIdentifier(userID))
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}

	actor := internal.ActorFromContext(ctx)
	fields := map[string]interface{}{}

	if dto.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*dto.Email))
		fields["email"] = u.Email
	}
	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
		fields["first_name"] = u.FirstName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
		fields["last_name"] = u.LastName
	}
	if dto.PhoneNumber != nil {
		u.PhoneNumber = *dto.PhoneNumber
		fields["phone_number"] = u.PhoneNumber
	}
	if dto.DesignationID != nil {
		u.DesignationID = dto.DesignationID
		fields["designation_id"] = *dto.DesignationID
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
		fields["is_active"] = u.IsActive
	}
	if dto.IsStaff != nil {
		u.IsStaff = *dto.IsStaff
		fields["is_staff"] = u.IsStaff
	}

	if len(fields) == 0 {
		return ProfileFromDataModel(u), nil
	}

	fields["updated_by"] = actor.Ref()
	fields["updated_at"] = time.Now()

	if err := s.repo.Update(u, fields, actor); err != nil {
		return nil, s.mapRepositoryError(err)
	}

	return s.GetByID(ctx, userID)
}

// Unlock clears a permanent or timed lock. This is the only path out of the
// permanent-lock tier.
func (s *Service) Unlock(ctx context.Context, userID string) error {
	u, err := s.repo.GetByID(auth.NormalizeIdentifier(userID))
	if err != nil {
		return s.mapRepositoryError(err)
	}

	actor := internal.ActorFromContext(ctx)
	fields := map[string]interface{}{
		"failed_login_attempts": 0,
		"last_failed_login":     nil,
		"locked_until":          nil,
		"permanent_lock":        false,
		"lock_reason":           nil,
		"updated_by":            actor.Ref(),
		"updated_at":            time.Now(),
	}

	if err := s.repo.Update(u, fields, actor); err != nil {
		return s.mapRepositoryError(err)
	}

	s.logger.Info("account unlocked", "user_id", u.UserID, "unlocked_by", actor.Ref())
	return nil
}

func (s *Service) SoftDelete(ctx context.Context, userID string) error {
	actor := internal.ActorFromContext(ctx)

	if err := s.repo.SoftDelete(auth.NormalizeIdentifier(userID), actor); err != nil {
		return s.mapRepositoryError(err)
	}

	s.events.Publish(ctx, events.NewSecurityEvent(events.TypeUserDeleted, map[string]interface{}{
		"user_id":    auth.NormalizeIdentifier(userID),
		"deleted_by": actor.Ref(),
	}))
	return nil
}

func (s *Service) HardDelete(ctx context.Context, userID string) error {
	actor := internal.ActorFromContext(ctx)

	if err := s.repo.HardDelete(auth.NormalizeIdentifier(userID), actor); err != nil {
		return s.mapRepositoryError(err)
	}

	s.logger.Warn("user hard deleted", "user_id", auth.NormalizeIdentifier(userID), "deleted_by", actor.Ref())
	return nil
}

func (s *Service) mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return internal.ErrUserNotFound
	case errors.Is(err, ErrDuplicate):
		return internal.NewConflictError("A user with that id, username or email already exists", internal.ErrCodeDuplicateRecord)
	default:
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		return internal.NewInternalError("user repository failure", err)
	}
}
