package establishment

import (
	"strings"
	"time"
)

type CreateEmployeeDTO struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phone_number"`
	DesignationID int64  `json:"designation_id"`
	// EmployeeType is the single-letter category folded into the employee id,
	// e.g. T for teaching, N for non-teaching.
	EmployeeType string `json:"employee_type"`
	JoiningDate  string `json:"joining_date"`
}

func (d *CreateEmployeeDTO) Validate() error {
	if strings.TrimSpace(d.FirstName) == "" {
		return ValidationError{Msg: "first_name is required"}
	}
	if !strings.Contains(d.Email, "@") {
		return ValidationError{Msg: "a valid email is required"}
	}
	if d.DesignationID <= 0 {
		return ValidationError{Msg: "designation_id is required"}
	}
	if len(strings.TrimSpace(d.EmployeeType)) != 1 {
		return ValidationError{Msg: "employee_type must be a single letter"}
	}
	if _, err := d.ParsedJoiningDate(); err != nil {
		return ValidationError{Msg: "joining_date must be YYYY-MM-DD"}
	}
	return nil
}

// ParsedJoiningDate defaults to today when the field is empty.
func (d *CreateEmployeeDTO) ParsedJoiningDate() (time.Time, error) {
	if strings.TrimSpace(d.JoiningDate) == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", d.JoiningDate)
}

type EmployeeResult struct {
	EmployeeID  string `json:"employee_id"`
	Email       string `json:"email"`
	MailedLogin bool   `json:"mailed_login"`
}

type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	return e.Msg
}
