package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/contacts"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/upstream"
)

type contactArgs struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ToolDispatcher executes function calls emitted by the model and answers
// every one of them, success or not, so the conversation never stalls waiting
// for a tool result.
type ToolDispatcher struct {
	store contacts.Store

	// OnSaved, when set, runs after each successful save with the stored
	// record. Called from the dispatching goroutine.
	OnSaved func(contacts.Contact)

	mu          sync.Mutex
	lastSavedID string
}

func NewToolDispatcher(store contacts.Store) *ToolDispatcher {
	return &ToolDispatcher{store: store}
}

// Dispatch handles one completed function_call item. The returned message, if
// non-nil, is forwarded to the client. Failures are reported back upstream
// and followed by a continue request so the model can recover verbally.
func (d *ToolDispatcher) Dispatch(ctx context.Context, up Upstream, item upstream.ConversationItem) *ServerMessage {
	var msg *ServerMessage
	var err error

	switch item.Name {
	case upstream.ToolSaveContact:
		msg, err = d.saveContact(ctx, up, item)
	case upstream.ToolUpdateContact:
		msg, err = d.updateContact(ctx, up, item)
	default:
		err = fmt.Errorf("unknown tool %q", item.Name)
	}

	if err != nil {
		log.Printf("tool %s failed: %v", item.Name, err)
		d.answer(up, item.CallID, map[string]any{"success": false, "error": err.Error()})
		if cerr := up.ContinueResponse(); cerr != nil {
			log.Printf("continue after tool failure: %v", cerr)
		}
		return nil
	}
	return msg
}

func (d *ToolDispatcher) saveContact(ctx context.Context, up Upstream, item upstream.ConversationItem) (*ServerMessage, error) {
	var args contactArgs
	if err := json.Unmarshal([]byte(item.Arguments), &args); err != nil {
		return nil, fmt.Errorf("parse save_contact arguments: %w", err)
	}

	name := strings.TrimSpace(args.Name)
	email := contacts.NormalizeEmail(args.Email)
	phone := contacts.NormalizePhone(args.Phone)

	id, err := d.store.Create(ctx, name, email, phone)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.lastSavedID = id
	d.mu.Unlock()

	saved := contacts.Contact{ID: id, Name: name, Email: email, Phone: phone}
	d.answer(up, item.CallID, map[string]any{"success": true, "id": id})
	if d.OnSaved != nil {
		d.OnSaved(saved)
	}
	return &ServerMessage{Type: MsgContactSaved, Data: saved}, nil
}

func (d *ToolDispatcher) updateContact(ctx context.Context, up Upstream, item upstream.ConversationItem) (*ServerMessage, error) {
	d.mu.Lock()
	id := d.lastSavedID
	d.mu.Unlock()
	if id == "" {
		return nil, fmt.Errorf("%w: no contact saved in this session yet", contacts.ErrNotFound)
	}

	var args contactArgs
	if err := json.Unmarshal([]byte(item.Arguments), &args); err != nil {
		return nil, fmt.Errorf("parse update_contact arguments: %w", err)
	}

	fields := map[string]string{}
	if v := strings.TrimSpace(args.Name); v != "" {
		fields["name"] = v
	}
	if v := strings.TrimSpace(args.Email); v != "" {
		fields["email"] = contacts.NormalizeEmail(v)
	}
	if v := strings.TrimSpace(args.Phone); v != "" {
		fields["phone"] = contacts.NormalizePhone(v)
	}

	// Nothing to change is still a successful call.
	if len(fields) == 0 {
		d.answer(up, item.CallID, map[string]any{"success": true})
		return nil, nil
	}

	updated, err := d.store.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	d.answer(up, item.CallID, map[string]any{"success": true, "id": updated.ID})
	return &ServerMessage{Type: MsgContactUpdated, Data: updated}, nil
}

func (d *ToolDispatcher) answer(up Upstream, callID string, result map[string]any) {
	out, err := json.Marshal(result)
	if err != nil {
		out = []byte(`{"success":false}`)
	}
	if err := up.SendToolResult(callID, string(out)); err != nil {
		log.Printf("send tool result: %v", err)
	}
}
