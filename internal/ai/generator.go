// Package ai provides the model backends that generate assistant replies.
package ai

import (
	"context"

	"github.com/nutrichat/nutrichat/internal/domain"
)

// AdviceSuggestion is a structured advice candidate attached to a reply.
type AdviceSuggestion struct {
	Type           domain.AdviceType `json:"type"`
	Content        string            `json:"content"`
	RelatedFoodIDs []string          `json:"related_food_ids"`
}

// Reply is the normalized output of one generation.
type Reply struct {
	Message string            `json:"message"`
	Advice  *AdviceSuggestion `json:"advice,omitempty"`
}

// TurnContext is the read-only snapshot fed into prompt construction. It must
// not be mutated by the generator.
type TurnContext struct {
	User            *domain.User
	RecentFoods     []domain.FoodEntry
	TodaysFoods     []domain.FoodEntry
	CurrentCalories int
	TargetCalories  int
}

// Generator produces assistant replies. Implementations never fail: missing
// credentials, timeouts, and malformed responses all resolve to the simulated
// responder, so every call yields a usable reply.
type Generator interface {
	// GenerateReply answers one user message given the truncated
	// conversation history and the turn context.
	GenerateReply(ctx context.Context, userMessage string, history []domain.Message, turnCtx *TurnContext) *Reply

	// GenerateDailyAdvice produces a daily dietary tip from the user's
	// profile and recent food log.
	GenerateDailyAdvice(ctx context.Context, user *domain.User, recentFoods []domain.FoodEntry) *Reply
}

// AdviceDetector classifies a free-text reply as containing actionable
// dietary advice. It is a heuristic; false positives and negatives are
// acceptable.
type AdviceDetector interface {
	ContainsAdvice(ctx context.Context, reply string) bool
}

// Ensure both implementations satisfy the interface.
var (
	_ Generator = (*Client)(nil)
	_ Generator = (*Simulated)(nil)
)
