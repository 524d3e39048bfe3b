package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

// EmployeeID formats an employee identifier, e.g. EM2026T001.
// The sequence restarts each joining year per employee type.
func EmployeeID(employeeType string, year, sequence int) string {
	return fmt.Sprintf("EM%d%s%03d", year, employeeType, sequence)
}

// StudentID formats a student identifier, e.g. BT2026F001.
func StudentID(courseCode string, year int, admissionType string, sequence int) string {
	return fmt.Sprintf("%s%d%s%03d", courseCode, year, admissionType, sequence)
}

// ParseSequence extracts the trailing 3-digit sequence from an identifier.
// Returns 0 when the identifier is too short or not numeric at the tail.
func ParseSequence(id string) int {
	if len(id) < 3 {
		return 0
	}
	seq, err := strconv.Atoi(id[len(id)-3:])
	if err != nil {
		return 0
	}
	return seq
}

// InitialPassword returns a random 10 character credential drawn from a
// charset that mixes case, digits and specials.
func InitialPassword() (string, error) {
	const length = 10
	max := big.NewInt(int64(len(passwordCharset)))

	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		buf[i] = passwordCharset[n.Int64()]
	}
	return string(buf), nil
}
