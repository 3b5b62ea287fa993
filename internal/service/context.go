package service

import (
	"context"
	"log"
	"time"

	"github.com/nutrichat/nutrichat/internal/ai"
	"github.com/nutrichat/nutrichat/internal/domain"
)

// defaultCalorieTarget is assumed when the user's profile cannot be read.
const defaultCalorieTarget = 2000

// RecentFoods returns the user's most recently logged foods, most-recent
// first. Data-access failures fail closed to an empty list.
func (s *Service) RecentFoods(ctx context.Context, userID string, limit int) []domain.FoodEntry {
	foods, err := s.store.ListRecentFoods(ctx, userID, limit)
	if err != nil {
		log.Printf("WARN: failed to load recent foods for %s: %v", userID, err)
		return nil
	}
	return foods
}

// CurrentCalorieStatus computes today's consumed calories against the user's
// target. Any failure resolves to unknown; the error never reaches the
// caller.
func (s *Service) CurrentCalorieStatus(ctx context.Context, userID string) domain.CalorieStatus {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("WARN: failed to load user %s for calorie status: %v", userID, err)
		return domain.CalorieStatusUnknown
	}

	todaysFoods, err := s.store.ListFoodsSince(ctx, userID, startOfToday())
	if err != nil {
		log.Printf("WARN: failed to load today's foods for %s: %v", userID, err)
		return domain.CalorieStatusUnknown
	}

	consumed := 0
	for _, food := range todaysFoods {
		consumed += food.Calories
	}
	target := user.DailyCalorieGoal
	if target <= 0 {
		target = defaultCalorieTarget
	}

	switch {
	case float64(consumed) < float64(target)*0.8:
		return domain.CalorieStatusUnderGoal
	case float64(consumed) > float64(target)*1.1:
		return domain.CalorieStatusOverGoal
	default:
		return domain.CalorieStatusNearGoal
	}
}

// BuildTurnContext assembles the read-only snapshot fed to prompt
// construction: profile fields, the conversation's stored recent-food
// references resolved to full records, today's foods and the calorie counts.
// Collaborator failures resolve to safe defaults, never to an error.
func (s *Service) BuildTurnContext(ctx context.Context, userID string, conv *domain.Conversation) *ai.TurnContext {
	turnCtx := &ai.TurnContext{
		TargetCalories: defaultCalorieTarget,
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("WARN: failed to load user %s for turn context: %v", userID, err)
	} else {
		turnCtx.User = user
		if user.DailyCalorieGoal > 0 {
			turnCtx.TargetCalories = user.DailyCalorieGoal
		}
	}

	if conv != nil && len(conv.Context.RecentFoodIDs) > 0 {
		recentFoods, err := s.store.GetFoodsByIDs(ctx, conv.Context.RecentFoodIDs)
		if err != nil {
			log.Printf("WARN: failed to resolve snapshot foods: %v", err)
		} else {
			turnCtx.RecentFoods = recentFoods
		}
	}

	todaysFoods, err := s.store.ListFoodsSince(ctx, userID, startOfToday())
	if err != nil {
		log.Printf("WARN: failed to load today's foods for %s: %v", userID, err)
	} else {
		turnCtx.TodaysFoods = todaysFoods
		for _, food := range todaysFoods {
			turnCtx.CurrentCalories += food.Calories
		}
	}

	return turnCtx
}

// startOfToday returns midnight of the local calendar day.
func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
