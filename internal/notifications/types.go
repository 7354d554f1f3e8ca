package notifications

import (
	"time"

	"tutoria.org/internal/notify"
)

// Notification is one stored message for a user.
type Notification struct {
	ID          int64      `json:"id"`
	Kind        string     `json:"tipo"`
	RecipientID int64      `json:"usuario_destino_id"`
	SenderID    *int64     `json:"usuario_origen_id,omitempty"`
	Body        string     `json:"mensaje"`
	RefKind     string     `json:"referencia_tipo,omitempty"`
	RefID       int64      `json:"referencia_id,omitempty"`
	CreatedAt   time.Time  `json:"fecha_creacion"`
	Read        bool       `json:"leida"`
	ReadAt      *time.Time `json:"fecha_lectura,omitempty"`
}

// View decorates a notification for display: the icon for its kind and the
// sender's display name when it could be resolved.
type View struct {
	Notification
	Icon       string `json:"icono"`
	SenderName string `json:"origen_nombre,omitempty"`
}

// Summary counts one user's notifications per kind.
type Summary struct {
	UserID int64          `json:"usuario_id"`
	ByKind map[string]int `json:"por_tipo"`
	Total  int            `json:"total"`
	Unread int            `json:"no_leidas"`
}

var icons = map[string]string{
	notify.KindNewFile:              "📄",
	notify.KindNewFeedback:          "💬",
	notify.KindAppointmentRequested: "📅",
	notify.KindAppointmentConfirmed: "✅",
	notify.KindAppointmentRejected:  "❌",
}

// IconFor returns the display icon for a notification kind.
func IconFor(kind string) string {
	if icon, ok := icons[kind]; ok {
		return icon
	}
	return "🔔"
}

// KnownKind reports whether the kind has dedicated rendering.
func KnownKind(kind string) bool {
	_, ok := icons[kind]
	return ok || kind == notify.KindSystem
}
