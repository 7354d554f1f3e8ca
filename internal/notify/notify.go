// Package notify is the producer side of notifications: services that need
// to alert a user post fire-and-forget messages through a Sink. Delivery is
// at most once; a dead notification service never fails the caller's
// operation.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"tutoria.org/internal/obs"
)

// Notification kinds understood by the notification service. Unknown kinds
// are accepted and rendered with a generic icon.
const (
	KindNewFile              = "archivo_nuevo"
	KindNewFeedback          = "feedback_nuevo"
	KindAppointmentRequested = "cita_nueva"
	KindAppointmentConfirmed = "cita_confirmada"
	KindAppointmentRejected  = "cita_rechazada"
	KindSystem               = "sistema"
)

// Reference kinds for Message.RefKind.
const (
	RefFile        = "archivo"
	RefAppointment = "cita"
)

// Message is one notification to deliver. RefKind/RefID point at the
// entity the notification is about ("archivo" or "cita").
type Message struct {
	Kind        string `json:"tipo"`
	RecipientID int64  `json:"usuario_destino_id"`
	SenderID    *int64 `json:"usuario_origen_id,omitempty"`
	Body        string `json:"mensaje"`
	RefKind     string `json:"referencia_tipo,omitempty"`
	RefID       int64  `json:"referencia_id,omitempty"`
}

// Sink accepts notifications for delivery.
type Sink interface {
	Notify(ctx context.Context, msg Message)
}

// Client delivers notifications to the notification service over HTTP.
type Client struct {
	base    string
	service string
	http    *http.Client
}

var _ Sink = (*Client)(nil)

// NewClient builds a Sink posting to the notification service at base.
// The service name is only used for log attribution.
func NewClient(service, base string) *Client {
	return &Client{
		base:    strings.TrimRight(base, "/"),
		service: service,
		http:    &http.Client{Timeout: 3 * time.Second},
	}
}

// Notify posts the message. Failures are logged and swallowed.
func (c *Client) Notify(ctx context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logFailure(msg, err.Error())
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/", bytes.NewReader(payload))
	if err != nil {
		c.logFailure(msg, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logFailure(msg, err.Error())
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		c.logFailure(msg, resp.Status)
	}
}

func (c *Client) logFailure(msg Message, reason string) {
	obs.LogEvent(c.service, "notify_failed", map[string]any{
		"usuario_destino_id": msg.RecipientID,
		"tipo":               msg.Kind,
		"reason":             reason,
	})
}

// Recorder is a Sink for tests: it keeps every message it receives.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

var _ Sink = (*Recorder)(nil)

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Notify(_ context.Context, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Discard is a Sink that drops everything. Useful when a service runs
// without a notification peer.
type Discard struct{}

var _ Sink = Discard{}

func (Discard) Notify(context.Context, Message) {}
