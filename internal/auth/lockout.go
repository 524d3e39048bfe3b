package auth

import (
	"fmt"
	"time"

	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

// Progressive lockout tiers on consecutive failed logins.
const (
	LockTierTimedAttempts     = 3 // 1 hour lock
	LockTierExtendedAttempts  = 5 // 6 hour lock
	LockTierPermanentAttempts = 8 // administrative unlock required

	lockDurationTimed    = time.Hour
	lockDurationExtended = 6 * time.Hour
)

const permanentLockReason = "Too many failed login attempts (8+). Administrative unlock required."

// LockoutEngine computes lock state from the counters on a user row and
// persists the tier transitions it causes. It holds no state of its own.
type LockoutEngine struct{}

// Evaluate reports whether the account is currently locked, with a
// human-readable message. Two side effects persist through repo: crossing the
// permanent tier flips PermanentLock immediately, and an elapsed timed window
// resets the failure counters.
func (LockoutEngine) Evaluate(repo Repository, u *userDatamodel.User) (bool, string, error) {
	if u.PermanentLock {
		return true, "Account is permanently locked. Please contact administrator.", nil
	}

	if u.FailedLoginAttempts == 0 || u.LastFailedLogin == nil {
		return false, "Account is not locked.", nil
	}

	now := time.Now()

	if u.FailedLoginAttempts >= LockTierPermanentAttempts {
		u.PermanentLock = true
		reason := permanentLockReason
		u.LockReason = &reason
		if err := repo.UpdateFields(u.UserID, map[string]interface{}{
			"permanent_lock": true,
			"lock_reason":    reason,
		}); err != nil {
			return false, "", err
		}
		return true, "Account has been permanently locked due to too many failed attempts. Please contact administrator.", nil
	}

	if u.FailedLoginAttempts >= LockTierExtendedAttempts {
		lockEnd := u.LastFailedLogin.Add(lockDurationExtended)
		if now.Before(lockEnd) {
			remaining := lockEnd.Sub(now)
			hours := int(remaining.Hours())
			minutes := int(remaining.Minutes()) % 60
			return true, fmt.Sprintf("Account is locked for %dh %dm due to multiple failed attempts.", hours, minutes), nil
		}
	} else if u.FailedLoginAttempts >= LockTierTimedAttempts {
		lockEnd := u.LastFailedLogin.Add(lockDurationTimed)
		if now.Before(lockEnd) {
			minutes := int(lockEnd.Sub(now).Minutes())
			return true, fmt.Sprintf("Account is locked for %d minutes due to failed attempts.", minutes), nil
		}
	}

	// The applicable window has elapsed; clear the counters.
	if _, err := (LockoutEngine{}).ResetFailedAttempts(repo, u); err != nil {
		return false, "", err
	}
	return false, "Account is not locked.", nil
}

// IncrementFailedAttempts bumps the counter, stamps the failure time, and
// applies whichever tier boundary was crossed. Only touched columns persist.
func (LockoutEngine) IncrementFailedAttempts(repo Repository, u *userDatamodel.User) error {
	now := time.Now()
	u.FailedLoginAttempts++
	u.LastFailedLogin = &now

	fields := map[string]interface{}{
		"failed_login_attempts": u.FailedLoginAttempts,
		"last_failed_login":     now,
	}

	switch {
	case u.FailedLoginAttempts >= LockTierPermanentAttempts:
		reason := permanentLockReason
		u.PermanentLock = true
		u.LockReason = &reason
		fields["permanent_lock"] = true
		fields["lock_reason"] = reason
	case u.FailedLoginAttempts >= LockTierExtendedAttempts:
		lockedUntil := now.Add(lockDurationExtended)
		u.LockedUntil = &lockedUntil
		fields["locked_until"] = lockedUntil
	case u.FailedLoginAttempts >= LockTierTimedAttempts:
		lockedUntil := now.Add(lockDurationTimed)
		u.LockedUntil = &lockedUntil
		fields["locked_until"] = lockedUntil
	}

	return repo.UpdateFields(u.UserID, fields)
}

// ResetFailedAttempts zeroes the counters. A permanent lock is terminal: the
// reset refuses and reports false. Safe to call repeatedly.
func (LockoutEngine) ResetFailedAttempts(repo Repository, u *userDatamodel.User) (bool, error) {
	if u.PermanentLock {
		return false, nil
	}

	u.FailedLoginAttempts = 0
	u.LastFailedLogin = nil
	u.LockedUntil = nil

	err := repo.UpdateFields(u.UserID, map[string]interface{}{
		"failed_login_attempts": 0,
		"last_failed_login":     nil,
		"locked_until":          nil,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// AttemptsRemaining is how many more failures fit before the next lockout
// tier, used in the invalid-credentials message.
func AttemptsRemaining(failedAttempts int) int {
	switch {
	case failedAttempts < LockTierTimedAttempts:
		return LockTierTimedAttempts - failedAttempts
	case failedAttempts < LockTierExtendedAttempts:
		return LockTierExtendedAttempts - failedAttempts
	case failedAttempts < LockTierPermanentAttempts:
		return LockTierPermanentAttempts - failedAttempts
	default:
		return 0
	}
}
