package files

import (
	"strings"
	"time"
)

// Review states of a submission.
const (
	StatePending      = "pendiente"
	StateReviewed     = "revisado"
	StateNeedsChanges = "necesita_cambios"
)

// ValidState reports whether s is a known review state.
func ValidState(s string) bool {
	switch s {
	case StatePending, StateReviewed, StateNeedsChanges:
		return true
	}
	return false
}

// Submission is one uploaded deliverable and its review trail.
type Submission struct {
	ID           int64      `json:"id"`
	OriginalName string     `json:"nombre_original"`
	StoredName   string     `json:"nombre_guardado"`
	Kind         string     `json:"tipo"`
	Size         int64      `json:"tamanio"`
	StudentID    int64      `json:"estudiante_id"`
	TutorID      int64      `json:"tutor_id"`
	UploadedAt   time.Time  `json:"fecha_subida"`
	Feedback     string     `json:"feedback"`
	FeedbackAt   *time.Time `json:"fecha_feedback"`
	State        string     `json:"estado"`
}

// TutorView decorates a submission with the student's display data for
// tutor-facing listings.
type TutorView struct {
	Submission
	StudentName     string `json:"estudiante_nombre"`
	StudentUsername string `json:"estudiante_username"`
}

// History is the chronological listing of one student's submissions.
type History struct {
	StudentID  int64        `json:"estudiante_id"`
	Entries    []Submission `json:"historial"`
	Total      int          `json:"total_entregas"`
	LastUpload *time.Time   `json:"ultima_entrega"`
}

// Feedback is a tutor's review of one submission.
type Feedback struct {
	Text  string `json:"feedback"`
	State string `json:"estado"`
}

// KindForName maps a filename to the submission kind stored with it.
func KindForName(name string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(name), ".pdf"):
		return "pdf"
	case strings.HasSuffix(strings.ToLower(name), ".zip"):
		return "zip"
	}
	return "desconocido"
}

// AllowedName reports whether the filename carries a permitted extension.
func AllowedName(name string) bool {
	return KindForName(name) != "desconocido"
}
