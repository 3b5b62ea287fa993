package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nutrichat/nutrichat/internal/domain"
)

// TurnResult is what one processed turn returns to the caller.
type TurnResult struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// ResolveConversation returns the user's current conversation, creating one
// when no conversation has been updated within the freshness window. The
// context snapshot of a new conversation is captured here, once, and not
// refreshed on later turns.
func (s *Service) ResolveConversation(ctx context.Context, userID string) (*domain.Conversation, error) {
	now := time.Now()

	// Build the candidate snapshot before the find-or-create so the insert
	// can stay a single atomic step. If a concurrent turn won the race the
	// candidate is simply discarded.
	recentFoods := s.RecentFoods(ctx, userID, recentFoodLimit)
	foodIDs := make([]string, 0, len(recentFoods))
	for _, food := range recentFoods {
		foodIDs = append(foodIDs, food.FoodID)
	}
	snapshot := domain.ConversationContext{
		RecentFoodIDs: foodIDs,
		CalorieStatus: s.CurrentCalorieStatus(ctx, userID),
	}
	if user, err := s.store.GetUser(ctx, userID); err == nil {
		snapshot.DietaryPreferences = user.DietaryPreferences
		snapshot.HealthGoals = user.HealthGoals
	}

	candidate := &domain.Conversation{
		ConversationID: "conv_" + uuid.New().String()[:8],
		UserID:         userID,
		StartedAt:      now,
		LastUpdatedAt:  now,
		Context:        snapshot,
	}

	conv, created, err := s.store.FindOrCreateConversation(ctx, candidate, now.Add(-FreshnessWindow))
	if err != nil {
		return nil, err
	}
	if created {
		return conv, nil
	}

	messages, err := s.store.GetMessages(ctx, conv.ConversationID)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages
	return conv, nil
}

// ProcessUserMessage runs one full turn: resolve the conversation, build the
// turn context from the pre-append history, generate a reply, persist the
// exchange and any extracted advice. Failures after validation are converted
// into the generic apology reply with no conversation id.
func (s *Service) ProcessUserMessage(ctx context.Context, userID, userMessage string) (*TurnResult, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := s.ResolveConversation(ctx, userID)
	if err != nil {
		log.Printf("WARN: failed to resolve conversation for %s: %v", userID, err)
		return &TurnResult{Message: apologyMessage}, nil
	}

	// History truncation works off the pre-append message list; the new user
	// message goes to the prompt builder explicitly so it is not counted
	// twice.
	turnCtx := s.BuildTurnContext(ctx, userID, conv)
	reply := s.generator.GenerateReply(ctx, userMessage, conv.Messages, turnCtx)

	now := time.Now()
	userMsg := &domain.Message{
		MessageID:      "msg_" + uuid.New().String()[:8],
		ConversationID: conv.ConversationID,
		Sender:         domain.SenderUser,
		Content:        userMessage,
		CreatedAt:      now,
	}
	assistantMsg := &domain.Message{
		MessageID:      "msg_" + uuid.New().String()[:8],
		ConversationID: conv.ConversationID,
		Sender:         domain.SenderAssistant,
		Content:        reply.Message,
		CreatedAt:      now,
	}
	if err := s.store.AppendTurn(ctx, conv.ConversationID, userMsg, assistantMsg, now); err != nil {
		log.Printf("WARN: failed to persist turn for %s: %v", conv.ConversationID, err)
		return &TurnResult{Message: apologyMessage}, nil
	}

	if reply.Advice != nil {
		if _, err := s.SaveAdvice(ctx, userID, reply.Advice, conv.ConversationID); err != nil {
			// The reply already reached durable storage; a lost advice
			// record is diagnostics, not a failed turn.
			log.Printf("WARN: failed to save advice for %s: %v", userID, err)
		}
	}

	return &TurnResult{
		Message:        reply.Message,
		ConversationID: conv.ConversationID,
	}, nil
}

// GetConversationHistory returns a specific conversation, or resolves the
// current one when conversationID is empty.
func (s *Service) GetConversationHistory(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	if conversationID == "" {
		return s.ResolveConversation(ctx, userID)
	}
	return s.store.GetConversation(ctx, conversationID, userID)
}

// ListConversations returns paginated list-view previews, most recently
// updated first.
func (s *Service) ListConversations(ctx context.Context, userID string, page, limit int) ([]domain.ConversationPreview, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return s.store.ListConversationPreviews(ctx, userID, (page-1)*limit, limit)
}
