package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/frahmantamala/college-erp/internal"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

const otpDigits = 6

// OTPEngine issues and verifies the time-boxed one-time codes used as the
// second login factor. State lives on the user row; at most one code is live
// per user because Generate overwrites unconditionally.
type OTPEngine struct {
	Expiry time.Duration
}

func NewOTPEngine(expiry time.Duration) OTPEngine {
	if expiry <= 0 {
		expiry = 3 * time.Minute
	}
	return OTPEngine{Expiry: expiry}
}

// Generate draws a fresh 6-digit code from a CSPRNG, stamps expiry and
// creation time, and zeroes the attempt counter. Any previously issued code is
// invalidated. The plaintext goes only to the caller for out-of-band delivery.
func (e OTPEngine) Generate(repo Repository, u *userDatamodel.User) (string, error) {
	code, err := randomDigits(otpDigits)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	now := time.Now()
	expiry := now.Add(e.Expiry)

	u.OTPCode = &code
	u.OTPExpiry = &expiry
	u.OTPCreatedAt = &now
	u.OTPAttempts = 0

	err = repo.UpdateFields(u.UserID, map[string]interface{}{
		"otp_code":       code,
		"otp_expiry":     expiry,
		"otp_created_at": now,
		"otp_attempts":   0,
	})
	if err != nil {
		return "", err
	}

	return code, nil
}

// Invalidate discards any stored code, used when delivery fails so the user
// is not left with a half-issued challenge.
func (e OTPEngine) Invalidate(repo Repository, u *userDatamodel.User) error {
	u.OTPCode = nil
	u.OTPExpiry = nil
	return repo.UpdateFields(u.UserID, map[string]interface{}{
		"otp_code":   nil,
		"otp_expiry": nil,
	})
}

// Verify checks a submitted code. clearOnSuccess distinguishes the one-shot
// login flow from the reset flow, which re-checks the same code on the final
// submit step. Attempt increments and expiry clears persist even though the
// call reports failure.
func (e OTPEngine) Verify(repo Repository, u *userDatamodel.User, code string, clearOnSuccess bool) error {
	if u.OTPCode == nil || u.OTPExpiry == nil {
		return internal.ErrOTPMissing
	}

	if time.Now().After(*u.OTPExpiry) {
		u.OTPCode = nil
		u.OTPExpiry = nil
		if err := repo.UpdateFields(u.UserID, map[string]interface{}{
			"otp_code":   nil,
			"otp_expiry": nil,
		}); err != nil {
			return err
		}
		return internal.ErrOTPExpired
	}

	maxTry := u.MaxOTPTry
	if maxTry <= 0 {
		maxTry = userDatamodel.DefaultMaxOTPTry
	}
	if u.OTPAttempts >= maxTry {
		return internal.ErrOTPExhausted
	}

	if code != *u.OTPCode {
		u.OTPAttempts++
		if err := repo.UpdateFields(u.UserID, map[string]interface{}{
			"otp_attempts": u.OTPAttempts,
		}); err != nil {
			return err
		}
		return internal.ErrOTPInvalid
	}

	u.OTPVerified = true
	u.OTPAttempts = 0
	fields := map[string]interface{}{
		"otp_verified": true,
		"otp_attempts": 0,
	}
	if clearOnSuccess {
		u.OTPCode = nil
		u.OTPExpiry = nil
		fields["otp_code"] = nil
		fields["otp_expiry"] = nil
	}

	return repo.UpdateFields(u.UserID, fields)
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
