package mail

import (
	"context"
	"sync"
)

// Message is a captured outbound mail
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Recorder is a Mailer that captures messages in memory. It backs tests and
// local development where no SMTP relay is configured.
type Recorder struct {
	mu       sync.Mutex
	messages []Message

	// FailWith, when set, is returned by Send without recording
	FailWith error
}

// NewRecorder creates an in-memory mailer
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records the message
func (r *Recorder) Send(ctx context.Context, recipient, subject, body string) error {
	if r.FailWith != nil {
		return r.FailWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of all captured messages
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recently captured message, or false if none
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}
