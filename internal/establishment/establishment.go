package establishment

// SequenceRepository resolves the next per-year, per-type employee sequence
// from already-issued identifiers.
type SequenceRepository interface {
	NextEmployeeSequence(employeeType string, year int) (int, error)
}

// Notifier delivers the issued credentials to the new employee.
type Notifier interface {
	Send(to, subject, body string) error
}
