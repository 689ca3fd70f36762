package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignup         ActivityEventType = "account.signup"
	ActivityEventEmailConfirmed ActivityEventType = "account.email.confirmed"
	ActivityEventConfirmResent  ActivityEventType = "account.email.confirm_resent"
	ActivityEventLoginSuccess   ActivityEventType = "account.login.success"
	ActivityEventLoginFailure   ActivityEventType = "account.login.failure"
	ActivityEventLogout         ActivityEventType = "account.logout"
	ActivityEventProfileUpdated ActivityEventType = "account.profile.updated"
	ActivityEventUserAdded      ActivityEventType = "account.user.added"
)

// ActivityEvent captures audit friendly information about an account action.
// ActorID is the user performing the action, UserID the one affected.
type ActivityEvent struct {
	EventType  ActivityEventType
	ActorID    uuid.UUID
	UserID     uuid.UUID
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// LogActivitySink writes events to a logger
type LogActivitySink struct {
	Logger Logger
}

func (s LogActivitySink) Record(_ context.Context, event ActivityEvent) error {
	args := []any{"event", string(event.EventType), "user", event.UserID}
	if event.ActorID != uuid.Nil && event.ActorID != event.UserID {
		args = append(args, "actor", event.ActorID)
	}
	for k, v := range event.Metadata {
		args = append(args, k, v)
	}
	s.Logger.Info("account activity", args...)
	return nil
}
