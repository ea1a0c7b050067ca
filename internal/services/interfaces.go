//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=../mocks/mock_services.go -package=mocks
package services

import (
	"context"

	"chat-core/internal/models"
	"chat-core/internal/realtime"
)

// MessageStore persists messages. Lookups return nil, nil when the record is
// absent.
type MessageStore interface {
	Save(ctx context.Context, msg *models.Message) error
	FindByID(ctx context.Context, id string) (*models.Message, error)
	// UpdateFields applies patch to one message, bumping its version. It
	// reports false when nothing matched, including a version mismatch.
	UpdateFields(ctx context.Context, id string, patch models.MessagePatch) (bool, error)
	// UpdateManyMatching applies patch to every match in one statement and
	// returns the updated refs.
	UpdateManyMatching(ctx context.Context, filter models.MessageFilter, patch models.MessagePatch) ([]models.MessageRef, error)
	// List returns matches newest first.
	List(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
	CountUnread(ctx context.Context, filter models.MessageFilter) (int64, error)
}

// UserDirectory exposes the public slice of user records. Unknown users
// yield nil, nil.
type UserDirectory interface {
	BriefOf(ctx context.Context, userID string) (*models.UserBrief, error)
}

// AuthResolver maps a credential to a user identity.
type AuthResolver interface {
	Resolve(ctx context.Context, credential string) (models.Identity, error)
}

// Notifier is the fan-out surface the lifecycle manager hands events to.
type Notifier interface {
	ToRoom(roomID string, evt models.Event, opts ...realtime.Option) realtime.Report
	ToUsers(userIDs []string, evt models.Event, opts ...realtime.Option) realtime.Report
}

// Actor is the authenticated caller of a lifecycle operation. ConnID, when
// set, is the originating connection; it is left out of the fan-out because
// the transport answers it directly.
type Actor struct {
	UserID string
	ConnID string
}
