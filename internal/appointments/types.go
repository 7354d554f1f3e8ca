package appointments

import "time"

// Appointment states. Transitions:
//
//	pendiente  -> confirmada | rechazada | cancelada
//	confirmada -> cancelada | completada
//
// rechazada, cancelada and completada are terminal.
const (
	StatePending   = "pendiente"
	StateConfirmed = "confirmada"
	StateRejected  = "rechazada"
	StateCancelled = "cancelada"
	StateCompleted = "completada"
)

// ValidState reports whether s is a known appointment state.
func ValidState(s string) bool {
	switch s {
	case StatePending, StateConfirmed, StateRejected, StateCancelled, StateCompleted:
		return true
	}
	return false
}

// Wire formats for fecha and hora. Both sort lexicographically in
// chronological order.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Appointment is one tutoring session request and its lifecycle.
type Appointment struct {
	ID           int64      `json:"id"`
	StudentID    int64      `json:"estudiante_id"`
	TutorID      int64      `json:"tutor_id"`
	Date         string     `json:"fecha"`
	Time         string     `json:"hora"`
	Reason       string     `json:"motivo"`
	Place        string     `json:"lugar,omitempty"`
	Notes        string     `json:"notas,omitempty"`
	State        string     `json:"estado"`
	RejectReason string     `json:"motivo_rechazo,omitempty"`
	RequestedAt  time.Time  `json:"fecha_solicitud"`
	RespondedAt  *time.Time `json:"fecha_respuesta"`
}

// Request is a student's ask for a session. The student comes from the
// authenticated caller, never the body.
type Request struct {
	TutorID int64  `json:"tutor_id"`
	Date    string `json:"fecha"`
	Time    string `json:"hora"`
	Reason  string `json:"motivo"`
}

// Response is the tutor's single combined answer to a pending request.
type Response struct {
	Accept       bool   `json:"aceptar"`
	RejectReason string `json:"motivo_rechazo"`
	Place        string `json:"lugar"`
	Notes        string `json:"notas"`
}

// Stats counts a user's appointments per state.
type Stats struct {
	UserID   int64          `json:"usuario_id"`
	ByState  map[string]int `json:"por_estado"`
	Total    int            `json:"total"`
	Upcoming int            `json:"proximas"`
}
