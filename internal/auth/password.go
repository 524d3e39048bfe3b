package auth

import (
	"time"

	"github.com/frahmantamala/college-erp/internal"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
	"golang.org/x/crypto/bcrypt"
)

// PasswordManager hashes credentials and enforces the reuse window over the
// stored password history.
type PasswordManager struct {
	BCryptCost   int
	HistoryDepth int
}

func NewPasswordManager(cost, historyDepth int) PasswordManager {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if historyDepth <= 0 {
		historyDepth = 5
	}
	return PasswordManager{BCryptCost: cost, HistoryDepth: historyDepth}
}

func (m PasswordManager) Hash(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), m.BCryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (m PasswordManager) Compare(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// CheckHistory fails with the reuse error when raw matches the current
// credential or any of the retained history hashes. Comparison is always
// hash-based; plaintexts are never stored.
func (m PasswordManager) CheckHistory(repo Repository, u *userDatamodel.User, raw string) error {
	if u.PasswordHash != "" && m.Compare(u.PasswordHash, raw) {
		return internal.ErrPasswordReuse
	}
	history, err := repo.PasswordHistory(u.UserID, m.HistoryDepth)
	if err != nil {
		return err
	}
	for _, entry := range history {
		if m.Compare(entry.PasswordHash, raw) {
			return internal.ErrPasswordReuse
		}
	}
	return nil
}

// SetPassword rotates the credential: reuse check for existing users, hash,
// history append, trim to the retention depth, stamp the change time.
func (m PasswordManager) SetPassword(repo Repository, u *userDatamodel.User, raw string) error {
	existing := u.PasswordHash != ""
	if existing {
		if err := m.CheckHistory(repo, u, raw); err != nil {
			return err
		}
	}

	hash, err := m.Hash(raw)
	if err != nil {
		return err
	}

	now := time.Now()
	u.PasswordHash = hash
	u.PasswordChangedAt = &now

	if err := repo.UpdateFields(u.UserID, map[string]interface{}{
		"password_hash":       hash,
		"password_changed_at": now,
	}); err != nil {
		return err
	}

	if existing {
		if err := repo.AppendPasswordHistory(u.UserID, hash); err != nil {
			return err
		}
		if err := repo.TrimPasswordHistory(u.UserID, m.HistoryDepth); err != nil {
			return err
		}
	}

	return nil
}
