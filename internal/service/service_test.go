package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nutrichat/nutrichat/internal/ai"
	"github.com/nutrichat/nutrichat/internal/config"
	"github.com/nutrichat/nutrichat/internal/domain"
	"github.com/nutrichat/nutrichat/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := newTestStore(t)
	svc := New(st, ai.NewSimulated(), &config.Config{ModelBackend: config.BackendSimulated})
	return svc, st
}

func seedUser(t *testing.T, st store.Store, userID string, calorieGoal int) {
	t.Helper()
	err := st.CreateUser(context.Background(), &domain.User{
		UserID:           userID,
		Username:         "tester",
		DailyCalorieGoal: calorieGoal,
		HealthGoals:      []string{"减脂"},
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
}

func logFood(t *testing.T, st store.Store, userID, foodID string, calories int, at time.Time) {
	t.Helper()
	err := st.CreateFoodEntry(context.Background(), &domain.FoodEntry{
		FoodID:   foodID,
		UserID:   userID,
		Name:     "测试食物",
		Calories: calories,
		LoggedAt: at,
	})
	if err != nil {
		t.Fatalf("CreateFoodEntry failed: %v", err)
	}
}

// failingStore makes turn persistence fail while everything else works.
type failingStore struct {
	store.Store
}

func (f *failingStore) AppendTurn(ctx context.Context, conversationID string, userMsg, assistantMsg *domain.Message, updatedAt time.Time) error {
	return errors.New("disk full")
}
