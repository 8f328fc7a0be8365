package email

import (
	"context"
	"sync"
)

// MemoryEmail is an email captured by a MemorySender.
type MemoryEmail struct {
	From      Address
	Recipient Address
	Subject   string
	Body      string
}

// MemorySender is a Sender that keeps emails in memory. It's used in
// tests. Unlike the real senders it is safe to inspect while a service
// worker is delivering concurrently.
type MemorySender struct {
	mu     sync.Mutex
	emails []MemoryEmail
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, from, recipient Address, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emails = append(s.emails, MemoryEmail{
		From:      from,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
	return nil
}

// Emails returns a copy of the emails sent so far.
func (s *MemorySender) Emails() []MemoryEmail {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]MemoryEmail, len(s.emails))
	copy(out, s.emails)
	return out
}
