package admsession

import (
	"context"

	"github.com/imoveisdeluxo/admsession/identity"
)

func (c *Console) emitAudit(ctx context.Context, eventType string, success bool, user *identity.User, email string, metadata map[string]string) {
	if c == nil || c.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	event := AuditEvent{
		Timestamp: c.now().UTC(),
		EventType: eventType,
		Email:     email,
		Success:   success,
		Metadata:  metadata,
	}
	if user != nil {
		event.UserID = string(user.ID)
		event.Role = string(user.Type)
		if event.Email == "" {
			event.Email = user.Email
		}
	}
	if !success {
		event.Error = eventType
	}

	c.audit.Emit(ctx, event)
}
