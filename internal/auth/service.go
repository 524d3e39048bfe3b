package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/college-erp/internal"
	"github.com/frahmantamala/college-erp/internal/core/events"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

// ServiceAPI is what the HTTP handler programs against.
type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*OTPChallengeResult, error)
	VerifyLoginOTP(ctx context.Context, dto VerifyOTPDTO, remoteIP string) (*LoginSessionResult, error)
	RequestPasswordReset(ctx context.Context, dto ResetRequestDTO) (*OTPChallengeResult, error)
	VerifyResetOTP(ctx context.Context, dto VerifyOTPDTO) (*ResetVerificationResult, error)
	CompleteReset(ctx context.Context, dto ResetPasswordDTO) error
	RefreshTokens(refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// Service orchestrates the two-factor login and password-reset workflows over
// the credential store, lockout engine, OTP engine and notifier. It keeps no
// in-memory session state; everything between steps lives on the user row.
type Service struct {
	repo      Repository
	notifier  Notifier
	tokens    TokenGenerator
	lockout   LockoutEngine
	otp       OTPEngine
	passwords PasswordManager
	events    *events.EventBus
	logger    *slog.Logger
}

func NewService(repo Repository, notifier Notifier, tokens TokenGenerator, otp OTPEngine, passwords PasswordManager, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		notifier:  notifier,
		tokens:    tokens,
		otp:       otp,
		passwords: passwords,
		events:    bus,
		logger:    logger,
	}
}

// Login is step 1: password check, lockout consultation, OTP issuance and
// dispatch. The OTP never appears in the result, only the masked email.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*OTPChallengeResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	identifier := NormalizeIdentifier(dto.UserID)

	var (
		domainErr error
		code      string
		user      *userDatamodel.User
	)

	// Counter updates must commit even when the login fails, so domain
	// failures are captured here instead of returned through the transaction.
	err := s.repo.WithLockedUser(identifier, func(locked Repository, u *userDatamodel.User) error {
		user = u

		if !u.IsActive {
			domainErr = internal.ErrAccountInactive
			return nil
		}

		isLocked, lockMessage, err := s.lockout.Evaluate(locked, u)
		if err != nil {
			return err
		}
		if isLocked {
			domainErr = internal.ErrAccountLocked.WithMessage(lockMessage)
			return nil
		}

		if !s.passwords.Compare(u.PasswordHash, dto.Password) {
			if err := s.lockout.IncrementFailedAttempts(locked, u); err != nil {
				return err
			}
			s.publishEvent(ctx, events.TypeLoginFailed, map[string]interface{}{
				"user_id":  u.UserID,
				"attempts": u.FailedLoginAttempts,
			})
			domainErr = internal.ErrInvalidCredentials.WithMessage(fmt.Sprintf(
				"Invalid credentials. %d attempts remaining before next lockout.",
				AttemptsRemaining(u.FailedLoginAttempts)))
			return nil
		}

		if _, err := s.lockout.ResetFailedAttempts(locked, u); err != nil {
			return err
		}

		code, err = s.otp.Generate(locked, u)
		return err
	})
	if err != nil {
		return nil, s.mapRepositoryError(err, identifier)
	}
	if domainErr != nil {
		return nil, domainErr
	}

	if err := s.dispatchOTP(user, code, "Login Verification", loginOTPBody(user.FirstName, code)); err != nil {
		return nil, err
	}

	return &OTPChallengeResult{
		UserID:      user.UserID,
		MaskedEmail: MaskEmail(user.Email),
		OTPSent:     true,
	}, nil
}

// VerifyLoginOTP is step 2: one-shot OTP consumption under the row lock,
// then session issuance with the permission map snapshot in the claims.
func (s *Service) VerifyLoginOTP(ctx context.Context, dto VerifyOTPDTO, remoteIP string) (*LoginSessionResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	identifier := NormalizeIdentifier(dto.UserID)

	var (
		domainErr error
		user      *userDatamodel.User
	)

	err := s.repo.WithLockedUser(identifier, func(locked Repository, u *userDatamodel.User) error {
		user = u

		if err := s.otp.Verify(locked, u, dto.OTP, true); err != nil {
			if _, ok := internal.IsAppError(err); ok {
				domainErr = err
				return nil
			}
			return err
		}

		now := time.Now()
		u.LastLogin = &now
		u.LastLoginIP = &remoteIP
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		return locked.UpdateFields(u.UserID, map[string]interface{}{
			"last_login":            now,
			"last_login_ip":         remoteIP,
			"failed_login_attempts": 0,
			"locked_until":          nil,
		})
	})
	if err != nil {
		return nil, s.mapRepositoryError(err, identifier)
	}
	if domainErr != nil {
		return nil, domainErr
	}

	sessionClaims := SessionClaims{
		UserID:      user.UserID,
		Username:    user.Username,
		IsSuperuser: user.IsSuperuser,
	}
	if user.Designation != nil {
		sessionClaims.Permissions = user.Designation.Permissions
	}

	accessToken, err := s.tokens.GenerateAccessToken(sessionClaims)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue session", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(sessionClaims)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue session", err)
	}

	s.publishEvent(ctx, events.TypeLoginSucceeded, map[string]interface{}{
		"user_id": user.UserID,
		"ip":      remoteIP,
	})

	profile := UserProfile{
		UserID:      user.UserID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		IsSuperuser: user.IsSuperuser,
	}
	if user.Designation != nil {
		profile.Designation = &DesignationProfile{
			ID:          user.Designation.DesignationID,
			Name:        user.Designation.Name,
			Code:        user.Designation.Code,
			Permissions: user.Designation.Permissions,
		}
	}

	return &LoginSessionResult{
		Tokens: AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken},
		User:   profile,
	}, nil
}

// RequestPasswordReset issues a reset OTP without requiring the password.
func (s *Service) RequestPasswordReset(ctx context.Context, dto ResetRequestDTO) (*OTPChallengeResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	identifier := NormalizeIdentifier(dto.UserID)

	var (
		domainErr error
		code      string
		user      *userDatamodel.User
	)

	err := s.repo.WithLockedUser(identifier, func(locked Repository, u *userDatamodel.User) error {
		user = u

		if !u.IsActive {
			domainErr = internal.ErrAccountInactive
			return nil
		}

		isLocked, lockMessage, err := s.lockout.Evaluate(locked, u)
		if err != nil {
			return err
		}
		if isLocked {
			domainErr = internal.ErrAccountLocked.WithMessage(lockMessage)
			return nil
		}

		code, err = s.otp.Generate(locked, u)
		return err
	})
	if err != nil {
		return nil, s.mapRepositoryError(err, identifier)
	}
	if domainErr != nil {
		return nil, domainErr
	}

	if err := s.dispatchOTP(user, code, "Password Reset OTP", resetOTPBody(user.FirstName, code)); err != nil {
		return nil, err
	}

	return &OTPChallengeResult{
		UserID:      user.UserID,
		MaskedEmail: MaskEmail(user.Email),
		OTPSent:     true,
	}, nil
}

// VerifyResetOTP checks the code without consuming it; the same code is
// re-verified by CompleteReset.
func (s *Service) VerifyResetOTP(ctx context.Context, dto VerifyOTPDTO) (*ResetVerificationResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	identifier := NormalizeIdentifier(dto.UserID)

	var domainErr error
	err := s.repo.WithLockedUser(identifier, func(locked Repository, u *userDatamodel.User) error {
		if err := s.otp.Verify(locked, u, dto.OTP, false); err != nil {
			if _, ok := internal.IsAppError(err); ok {
				domainErr = err
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.mapRepositoryError(err, identifier)
	}
	if domainErr != nil {
		return nil, domainErr
	}

	return &ResetVerificationResult{Verified: true, Message: "OTP verified successfully"}, nil
}

// CompleteReset re-verifies the same OTP and rotates the password. The reuse
// check runs first so a rejected password leaves the OTP intact for a retry.
func (s *Service) CompleteReset(ctx context.Context, dto ResetPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	identifier := NormalizeIdentifier(dto.UserID)

	var domainErr error
	err := s.repo.WithLockedUser(identifier, func(locked Repository, u *userDatamodel.User) error {
		if err := s.passwords.CheckHistory(locked, u, dto.NewPassword); err != nil {
			if _, ok := internal.IsAppError(err); ok {
				domainErr = err
				return nil
			}
			return err
		}

		// Full re-check of expiry and attempts, not just the verified flag:
		// a stale confirmation must not consume a newer code's window.
		if err := s.otp.Verify(locked, u, dto.OTP, true); err != nil {
			if _, ok := internal.IsAppError(err); ok {
				domainErr = err
				return nil
			}
			return err
		}

		if err := s.passwords.SetPassword(locked, u, dto.NewPassword); err != nil {
			if _, ok := internal.IsAppError(err); ok {
				domainErr = err
				return nil
			}
			return err
		}

		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		u.OTPVerified = false
		if err := locked.UpdateFields(u.UserID, map[string]interface{}{
			"failed_login_attempts": 0,
			"locked_until":          nil,
			"otp_verified":          false,
		}); err != nil {
			return err
		}

		return locked.RecordUserHistory(UserHistoryEntry{
			UserID:   u.UserID,
			Action:   "UPDATE",
			ActorRef: u.UserID,
			NewData:  map[string]interface{}{"password_changed": true},
		})
	})
	if err != nil {
		return s.mapRepositoryError(err, identifier)
	}
	if domainErr != nil {
		return domainErr
	}

	s.publishEvent(ctx, events.TypePasswordReset, map[string]interface{}{
		"user_id": identifier,
	})
	return nil
}

// RefreshTokens validates a refresh token and rotates the pair. The permission
// snapshot is re-read so a designation change takes effect on refresh.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, s.mapTokenError(err)
	}

	user, err := s.repo.FindByIdentifier(claims.UserID)
	if err != nil {
		return AuthTokens{}, internal.ErrInvalidToken
	}
	if !user.IsActive {
		return AuthTokens{}, internal.ErrAccountInactive
	}

	sessionClaims := SessionClaims{
		UserID:      user.UserID,
		Username:    user.Username,
		IsSuperuser: user.IsSuperuser,
	}
	if user.Designation != nil {
		sessionClaims.Permissions = user.Designation.Permissions
	}

	accessToken, err := s.tokens.GenerateAccessToken(sessionClaims)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue session", err)
	}
	newRefreshToken, err := s.tokens.GenerateRefreshToken(sessionClaims)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue session", err)
	}

	return AuthTokens{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, s.mapTokenError(err)
	}
	return claims, nil
}

func (s *Service) dispatchOTP(user *userDatamodel.User, code, subject, body string) error {
	if err := s.notifier.Send(user.Email, subject, body); err != nil {
		s.logger.Error("otp dispatch failed", "user_id", user.UserID, "error", err)
		// Leave no half-issued challenge behind: the user retries from step 1.
		if invalidateErr := s.otp.Invalidate(s.repo, user); invalidateErr != nil {
			s.logger.Error("otp invalidation failed after dispatch failure",
				"user_id", user.UserID, "error", invalidateErr)
		}
		return internal.ErrNotificationFailed
	}
	return nil
}

func (s *Service) mapRepositoryError(err error, identifier string) error {
	if errors.Is(err, ErrUserNotFound) {
		return internal.ErrUserNotFound
	}
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr
	}
	s.logger.Error("credential store failure", "identifier", identifier, "error", err)
	return internal.NewInternalError("An error occurred during login", err)
}

func (s *Service) mapTokenError(err error) error {
	if errors.Is(err, errTokenExpired) {
		return internal.ErrTokenExpired
	}
	return internal.ErrInvalidToken
}

func (s *Service) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events.NewSecurityEvent(eventType, data)); err != nil {
		s.logger.Warn("failed to publish security event", "event_type", eventType, "error", err)
	}
}

func loginOTPBody(firstName, code string) string {
	return fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your OTP for login is: %s\n"+
			"This OTP will expire in 3 minutes.\n\n"+
			"If you did not request this OTP, please ignore this email.\n\n"+
			"Best regards,\nCollege ERP Team",
		firstName, code)
}

func resetOTPBody(firstName, code string) string {
	return fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your OTP for password reset is: %s\n"+
			"This OTP will expire in 3 minutes.\n\n"+
			"If you did not request this reset, please contact your administrator.\n\n"+
			"Best regards,\nCollege ERP Team",
		firstName, code)
}
