package entity

// Recipient is a resolved delivery identity.
// ID is empty for external recipients, which have no backing record.
type Recipient struct {
	ID    string
	Email string
	Name  string
}

// User is a system account (administrator, registry staff).
type User struct {
	ID    string
	Name  string
	Email string
}

// Student is a registered graduate student.
type Student struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// FullName joins first and last name with a single space.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Examiner is an internal or external thesis examiner.
type Examiner struct {
	ID             string
	Name           string
	PrimaryEmail   string
	SecondaryEmail string
}

// Supervisor is a student's academic supervisor.
type Supervisor struct {
	ID            string
	Name          string
	WorkEmail     string
	PersonalEmail string
}

// Panelist sits on a proposal defense or viva panel.
type Panelist struct {
	ID    string
	Name  string
	Email string
}

// StudentStatus is one entry of a student's status history.
// Only the latest entry has IsCurrent set.
type StudentStatus struct {
	ID         string
	StudentID  string
	Definition string
	IsCurrent  bool
}
