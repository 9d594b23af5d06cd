// Package contacts holds the contact record model, spoken-text normalization,
// and the persistence collaborator used by the tool-call dispatcher.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Field length caps enforced at the store boundary.
const (
	MaxNameLength  = 255
	MaxEmailLength = 255
	MaxPhoneLength = 20
)

// ErrNotFound is returned by Update when the identifier does not resolve.
var ErrNotFound = errors.New("contact not found")

// Contact is one saved record.
type Contact struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Store is the persistence collaborator. Create returns the new record's
// identifier; Update applies only the supplied fields.
type Store interface {
	Create(ctx context.Context, name, email, phone string) (string, error)
	Update(ctx context.Context, id string, fields map[string]string) (Contact, error)
	List(ctx context.Context, limit int) ([]Contact, error)
}

func validateField(name, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	if len(value) > max {
		return fmt.Errorf("%s cannot exceed %d characters", name, max)
	}
	return nil
}

func validateContact(name, email, phone string) error {
	if err := validateField("name", name, MaxNameLength); err != nil {
		return err
	}
	if err := validateField("email", email, MaxEmailLength); err != nil {
		return err
	}
	return validateField("phone", phone, MaxPhoneLength)
}

// MemoryStore keeps contacts in memory. Used when no database is configured
// and throughout the tests.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int
	records  map[string]Contact
	inserted []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Contact)}
}

func (s *MemoryStore) Create(_ context.Context, name, email, phone string) (string, error) {
	if err := validateContact(name, email, phone); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("%d", s.nextID)
	s.records[id] = Contact{ID: id, Name: name, Email: email, Phone: phone}
	s.inserted = append(s.inserted, id)
	return id, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fields map[string]string) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[id]
	if !ok {
		return Contact{}, ErrNotFound
	}
	if v, ok := fields["name"]; ok {
		c.Name = v
	}
	if v, ok := fields["email"]; ok {
		c.Email = v
	}
	if v, ok := fields["phone"]; ok {
		c.Phone = v
	}
	if err := validateContact(c.Name, c.Email, c.Phone); err != nil {
		return Contact{}, err
	}
	s.records[id] = c
	return c, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Newest first.
	var out []Contact
	for i := len(s.inserted) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[s.inserted[i]])
	}
	return out, nil
}
