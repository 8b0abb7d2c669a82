// Package notify delivers account emails as events. Delivery itself (SMTP,
// templates) happens in a downstream consumer.
package notify

import (
	"context" // Cancellation
	"sync"    // Guards the in-memory recorder
	"time"    // Timestamps

	"github.com/google/uuid"     // Message ids
	"github.com/sirupsen/logrus" // Logging library
)

// Message types
const (
	TypeVerifyEmail   = "verify_email"   // Registration confirmation
	TypeResetPassword = "reset_password" // Forgot-password link
)

// Message is one outbound email event
type Message struct {
	ID        string    `json:"id"`         // Unique message id
	Type      string    `json:"type"`       // verify_email or reset_password
	To        string    `json:"to"`         // Recipient address
	Link      string    `json:"link"`       // Action link for the email body
	Token     string    `json:"token"`      // Raw token, for clients that build their own links
	CreatedAt time.Time `json:"created_at"` // Event time
}

// NewMessage stamps a message with an id and time
func NewMessage(kind, to, link, token string) Message {
	return Message{ID: uuid.NewString(), Type: kind, To: to, Link: link, Token: token, CreatedAt: time.Now().UTC()}
}

// Notifier sends account emails
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log instead of a broker
type LogNotifier struct{}

// Notify implements Notifier
func (LogNotifier) Notify(_ context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{
		"message_id": msg.ID,   // Message id
		"type":       msg.Type, // Message type
		"to":         msg.To,   // Recipient
		"link":       msg.Link, // Action link
	}).Info("Notification")
	return nil
}

// Recorder keeps messages in memory
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify implements Notifier
func (r *Recorder) Notify(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of everything recorded
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent message of the given type
func (r *Recorder) Last(kind string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Type == kind {
			return r.messages[i], true
		}
	}
	return Message{}, false
}
