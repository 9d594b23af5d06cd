package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const contactsTable = "contacts"

// SupabaseStore persists contacts in a Supabase (PostgREST) table.
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore constructs a store against the given project.
func NewSupabaseStore(url, serviceRoleKey string) (*SupabaseStore, error) {
	if url == "" || serviceRoleKey == "" {
		return nil, fmt.Errorf("missing Supabase configuration: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY required")
	}
	client, err := supabase.NewClient(url, serviceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create Supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

type contactRow struct {
	ID    json.Number `json:"id,omitempty"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Phone string      `json:"phone"`
}

func (r contactRow) contact() Contact {
	return Contact{ID: r.ID.String(), Name: r.Name, Email: r.Email, Phone: r.Phone}
}

func (s *SupabaseStore) Create(_ context.Context, name, email, phone string) (string, error) {
	if err := validateContact(name, email, phone); err != nil {
		return "", err
	}
	data, _, err := s.client.From(contactsTable).
		Insert(contactRow{Name: name, Email: email, Phone: phone}, false, "", "representation", "").
		Execute()
	if err != nil {
		return "", fmt.Errorf("insert contact: %w", err)
	}
	var rows []contactRow
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return "", fmt.Errorf("insert contact: unexpected response")
	}
	return rows[0].ID.String(), nil
}

func (s *SupabaseStore) Update(_ context.Context, id string, fields map[string]string) (Contact, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return Contact{}, ErrNotFound
	}
	data, _, err := s.client.From(contactsTable).
		Update(fields, "representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return Contact{}, fmt.Errorf("update contact: %w", err)
	}
	var rows []contactRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return Contact{}, fmt.Errorf("update contact: unexpected response")
	}
	if len(rows) == 0 {
		return Contact{}, ErrNotFound
	}
	return rows[0].contact(), nil
}

func (s *SupabaseStore) List(_ context.Context, limit int) ([]Contact, error) {
	data, _, err := s.client.From(contactsTable).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	var rows []contactRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("list contacts: decode: %w", err)
	}
	out := make([]Contact, len(rows))
	for i, r := range rows {
		out[i] = r.contact()
	}
	return out, nil
}
