package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nutrichat/nutrichat/internal/ai"
	"github.com/nutrichat/nutrichat/internal/domain"
)

// recentFoodLogWindow is how many entries feed the daily advice prompt.
const recentFoodLogWindow = 7

// SaveAdvice persists an advice suggestion produced by the pipeline.
func (s *Service) SaveAdvice(ctx context.Context, userID string, suggestion *ai.AdviceSuggestion, conversationID string) (*domain.DietaryAdvice, error) {
	advice := &domain.DietaryAdvice{
		AdviceID:       "adv_" + uuid.New().String()[:8],
		UserID:         userID,
		Type:           suggestion.Type,
		Content:        suggestion.Content,
		RelatedFoodIDs: suggestion.RelatedFoodIDs,
		ConversationID: conversationID,
		GeneratedAt:    time.Now(),
	}
	if err := s.store.CreateAdvice(ctx, advice); err != nil {
		return nil, fmt.Errorf("failed to save advice: %w", err)
	}
	return advice, nil
}

// ListAdvice returns the user's advice, most-recent-first, optionally
// filtered by type.
func (s *Service) ListAdvice(ctx context.Context, userID string, adviceType domain.AdviceType) ([]domain.DietaryAdvice, error) {
	if adviceType != "" && !adviceType.Valid() {
		return nil, fmt.Errorf("unknown advice type %q", adviceType)
	}
	return s.store.ListAdvice(ctx, userID, adviceType)
}

// MarkAdviceRead flags an advice record as read. Advice that does not exist
// or belongs to another user is reported as not found.
func (s *Service) MarkAdviceRead(ctx context.Context, userID, adviceID string) (*domain.DietaryAdvice, error) {
	return s.store.MarkAdviceRead(ctx, userID, adviceID)
}

// GenerateDailyAdvice produces and persists a daily dietary tip for the
// user. When the model backend is unavailable the fixed default tip is
// stored instead.
func (s *Service) GenerateDailyAdvice(ctx context.Context, userID string) (*domain.DietaryAdvice, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	recentFoods := s.RecentFoods(ctx, userID, recentFoodLogWindow)

	reply := s.generator.GenerateDailyAdvice(ctx, user, recentFoods)
	suggestion := reply.Advice
	if suggestion == nil {
		suggestion = &ai.AdviceSuggestion{
			Type:           domain.AdviceTypeDaily,
			Content:        reply.Message,
			RelatedFoodIDs: []string{},
		}
	}
	return s.SaveAdvice(ctx, userID, suggestion, "")
}
