// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nutrichat/nutrichat/internal/domain"
)

// ErrNotFound is returned when a record does not exist or does not belong to
// the requesting user. Callers must not be able to tell the two apart.
var ErrNotFound = errors.New("not found")

// Store defines the interface for data persistence.
type Store interface {
	// User operations (read-mostly; account management is external)
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// Food log operations (read-only to the conversation core)
	CreateFoodEntry(ctx context.Context, entry *domain.FoodEntry) error
	ListRecentFoods(ctx context.Context, userID string, limit int) ([]domain.FoodEntry, error)
	ListFoodsSince(ctx context.Context, userID string, since time.Time) ([]domain.FoodEntry, error)
	GetFoodsByIDs(ctx context.Context, foodIDs []string) ([]domain.FoodEntry, error)

	// Conversation operations
	// FindOrCreateConversation returns the user's most recently updated
	// conversation with last_updated_at >= cutoff, or atomically inserts
	// candidate when none exists. The bool reports whether candidate was
	// inserted.
	FindOrCreateConversation(ctx context.Context, candidate *domain.Conversation, cutoff time.Time) (*domain.Conversation, bool, error)
	GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error)
	ListConversationPreviews(ctx context.Context, userID string, offset, limit int) ([]domain.ConversationPreview, error)
	GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	// AppendTurn persists one user/assistant exchange and bumps the
	// conversation's last_updated_at in a single transaction.
	AppendTurn(ctx context.Context, conversationID string, userMsg, assistantMsg *domain.Message, updatedAt time.Time) error

	// Advice operations
	CreateAdvice(ctx context.Context, advice *domain.DietaryAdvice) error
	ListAdvice(ctx context.Context, userID string, adviceType domain.AdviceType) ([]domain.DietaryAdvice, error)
	// MarkAdviceRead sets is_read and returns the updated record. Marking an
	// already-read advice succeeds; advice belonging to another user is
	// reported as ErrNotFound.
	MarkAdviceRead(ctx context.Context, userID, adviceID string) (*domain.DietaryAdvice, error)

	// Lifecycle
	Close() error
}
