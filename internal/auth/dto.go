package auth

import (
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// LoginDTO is the transport shape for login step 1 (password check).
type LoginDTO struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	if d.UserID == "" {
		return ValidationError{Msg: "user_id is required"}
	}
	if d.Password == "" {
		return ValidationError{Msg: "password is required"}
	}
	return nil
}

// VerifyOTPDTO is the transport shape for login step 2 and reset verification.
type VerifyOTPDTO struct {
	UserID string `json:"user_id"`
	OTP    string `json:"otp"`
}

func (d VerifyOTPDTO) Validate() error {
	if d.UserID == "" {
		return ValidationError{Msg: "user_id is required"}
	}
	if d.OTP == "" {
		return ValidationError{Msg: "otp is required"}
	}
	return nil
}

type ResetRequestDTO struct {
	UserID string `json:"user_id"`
}

func (d ResetRequestDTO) Validate() error {
	if d.UserID == "" {
		return ValidationError{Msg: "user_id is required"}
	}
	return nil
}

type ResetPasswordDTO struct {
	UserID      string `json:"user_id"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

func (d ResetPasswordDTO) Validate() error {
	if d.UserID == "" {
		return ValidationError{Msg: "user_id is required"}
	}
	if d.OTP == "" {
		return ValidationError{Msg: "otp is required"}
	}
	if d.NewPassword == "" {
		return ValidationError{Msg: "new_password is required"}
	}
	if len(d.NewPassword) < 8 {
		return ValidationError{Msg: "new_password must be at least 8 characters"}
	}
	return nil
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() error {
	if d.RefreshToken == "" {
		return ValidationError{Msg: "refresh_token is required"}
	}
	return nil
}

// OTPChallengeResult is returned by Login and RequestPasswordReset. The code
// itself never appears here; only the masked delivery address does.
type OTPChallengeResult struct {
	UserID      string `json:"user_id"`
	MaskedEmail string `json:"email"`
	OTPSent     bool   `json:"otp_sent"`
}

// DesignationProfile is the designation payload embedded in login results.
type DesignationProfile struct {
	ID          int64                       `json:"id"`
	Name        string                      `json:"name"`
	Code        string                      `json:"code"`
	Permissions userDatamodel.PermissionMap `json:"permissions"`
}

// UserProfile is the profile returned alongside tokens after OTP verification.
type UserProfile struct {
	UserID      string              `json:"user_id"`
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	FirstName   string              `json:"first_name"`
	LastName    string              `json:"last_name"`
	IsSuperuser bool                `json:"is_superuser"`
	Designation *DesignationProfile `json:"designation,omitempty"`
}

type LoginSessionResult struct {
	Tokens AuthTokens  `json:"tokens"`
	User   UserProfile `json:"user"`
}

type ResetVerificationResult struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}
