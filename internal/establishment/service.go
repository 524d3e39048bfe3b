package establishment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/college-erp/internal"
	"github.com/frahmantamala/college-erp/internal/auth"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/college-erp/internal/user"
	"github.com/frahmantamala/college-erp/pkg/idgen"
)

// Service onboards employees: issues the employee id, provisions the login
// with a random initial credential and mails it out.
type Service struct {
	users     user.Repository
	sequences SequenceRepository
	passwords auth.PasswordManager
	notifier  Notifier
	logger    *slog.Logger
}

func NewService(users user.Repository, sequences SequenceRepository, passwords auth.PasswordManager, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		users:     users,
		sequences: sequences,
		passwords: passwords,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *Service) CreateEmployee(ctx context.Context, dto CreateEmployeeDTO) (*EmployeeResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	joiningDate, err := dto.ParsedJoiningDate()
	if err != nil {
		return nil, ValidationError{Msg: "joining_date must be YYYY-MM-DD"}
	}

	employeeType := strings.ToUpper(strings.TrimSpace(dto.EmployeeType))
	year := joiningDate.Year()

	seq, err := s.sequences.NextEmployeeSequence(employeeType, year)
	if err != nil {
		return nil, internal.NewInternalError("failed to allocate employee sequence", err)
	}
	employeeID := idgen.EmployeeID(employeeType, year, seq)

	initialPassword, err := idgen.InitialPassword()
	if err != nil {
		return nil, internal.NewInternalError("failed to generate initial password", err)
	}

	hash, err := s.passwords.Hash(initialPassword)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash initial password", err)
	}

	actor := internal.ActorFromContext(ctx)
	now := time.Now()
	designationID := dto.DesignationID

	u := &userDatamodel.User{
		UserID:        employeeID,
		Username:      employeeID,
		Email:         strings.ToLower(strings.TrimSpace(dto.Email)),
		PasswordHash:  hash,
		FirstName:     dto.FirstName,
		LastName:      dto.LastName,
		PhoneNumber:   dto.PhoneNumber,
		DesignationID: &designationID,
		IsActive:      true,
		IsStaff:       true,
		MaxOTPTry:     userDatamodel.DefaultMaxOTPTry,
		DateJoined:    joiningDate,
	}
	u.CreatedBy = actor.Ref()
	u.CreatedAt = now
	u.UpdatedBy = actor.Ref()
	u.UpdatedAt = now

	if err := s.users.Create(u, actor); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		if err == user.ErrDuplicate {
			return nil, internal.NewConflictError("An employee with that id or email already exists", internal.ErrCodeDuplicateRecord)
		}
		return nil, internal.NewInternalError("failed to create employee", err)
	}

	mailed := true
	if err := s.notifier.Send(u.Email, "Your College ERP Account", credentialBody(u.FirstName, employeeID, initialPassword)); err != nil {
		// The account exists either way; the admin can trigger a password
		// reset if the mail never arrived.
		mailed = false
		s.logger.Error("failed to mail initial credentials", "employee_id", employeeID, "error", err)
	}

	s.logger.Info("employee onboarded",
		"employee_id", employeeID,
		"created_by", actor.Ref(),
		"mailed_login", mailed)

	return &EmployeeResult{
		EmployeeID:  employeeID,
		Email:       u.Email,
		MailedLogin: mailed,
	}, nil
}

func credentialBody(firstName, employeeID, password string) string {
	return fmt.Sprintf(
		"Dear %s,\n\nYour College ERP account has been created.\n\nEmployee ID: %s\nInitial Password: %s\n\nPlease sign in and change your password immediately.\n\nCollege ERP Team",
		firstName, employeeID, password)
}
