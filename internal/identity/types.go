package identity

import "time"

// Role is the account role. The wire values are Spanish, matching the
// public API contract.
type Role string

const (
	RoleStudent Role = "estudiante"
	RoleTutor   Role = "tutor"
)

// Valid reports whether the role is one of the two known values.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTutor
}

// Account is a student or tutor identity. PasswordHash never leaves the
// service.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"nombre"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"rol"`
	TutorID      *int64    `json:"tutor_id"`
	RegisteredAt time.Time `json:"fecha_registro"`
}

// Summary is the compact account projection embedded in other payloads.
type Summary struct {
	ID    int64  `json:"id"`
	Name  string `json:"nombre"`
	Email string `json:"email"`
}

// Summarize returns the compact projection of the account.
func (a *Account) Summarize() Summary {
	return Summary{ID: a.ID, Name: a.Name, Email: a.Email}
}

// Profile is the full account view: students see their tutor, tutors see
// their linked students.
type Profile struct {
	Account
	Tutor    *Summary  `json:"tutor,omitempty"`
	Students []Summary `json:"estudiantes,omitempty"`
}

// Roster lists the students linked to one tutor.
type Roster struct {
	Tutor    Summary   `json:"tutor"`
	Students []Summary `json:"estudiantes"`
	Total    int       `json:"total"`
}

// NewAccount carries the fields required to register an account.
type NewAccount struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"rol"`
	TutorID  *int64 `json:"tutor_id"`
}

// AccountUpdate is a partial update; nil fields are left untouched.
type AccountUpdate struct {
	Name    *string `json:"nombre"`
	Email   *string `json:"email"`
	TutorID *int64  `json:"tutor_id"`
}
