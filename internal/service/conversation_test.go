package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nutrichat/nutrichat/internal/ai"
	"github.com/nutrichat/nutrichat/internal/config"
	"github.com/nutrichat/nutrichat/internal/domain"
	"github.com/nutrichat/nutrichat/internal/store"
)

func TestProcessUserMessagePersistsTurn(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedUser(t, st, "u1", 2000)

	result, err := svc.ProcessUserMessage(ctx, "u1", "我今天吃什么好呢")
	if err != nil {
		t.Fatalf("ProcessUserMessage failed: %v", err)
	}
	if result.Message == "" || result.ConversationID == "" {
		t.Fatalf("incomplete turn result: %+v", result)
	}

	conv, err := st.GetConversation(ctx, result.ConversationID, "u1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected the user message and the reply, got %d messages", len(conv.Messages))
	}
	if conv.Messages[0].Sender != domain.SenderUser || conv.Messages[0].Content != "我今天吃什么好呢" {
		t.Fatalf("user message not persisted first: %+v", conv.Messages[0])
	}
	if conv.Messages[1].Sender != domain.SenderAssistant || conv.Messages[1].Content != result.Message {
		t.Fatalf("assistant message mismatch: %+v", conv.Messages[1])
	}

	// The offline responder flags meal suggestions as advice; one record must
	// have been extracted and linked to the conversation.
	advice, err := st.ListAdvice(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ListAdvice failed: %v", err)
	}
	if len(advice) != 1 || advice[0].Type != domain.AdviceTypeResponse {
		t.Fatalf("expected one response advice, got %+v", advice)
	}
	if advice[0].ConversationID != result.ConversationID {
		t.Fatalf("advice not linked to conversation: %+v", advice[0])
	}
}

func TestProcessUserMessageNoAdviceForGreeting(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedUser(t, st, "u1", 2000)

	if _, err := svc.ProcessUserMessage(ctx, "u1", "你好"); err != nil {
		t.Fatalf("ProcessUserMessage failed: %v", err)
	}
	advice, err := st.ListAdvice(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ListAdvice failed: %v", err)
	}
	if len(advice) != 0 {
		t.Fatalf("greeting should not produce advice, got %+v", advice)
	}
}

func TestProcessUserMessageEmpty(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedUser(t, st, "u1", 2000)

	for _, msg := range []string{"", "   ", "\n\t"} {
		if _, err := svc.ProcessUserMessage(ctx, "u1", msg); err != ErrEmptyMessage {
			t.Fatalf("expected ErrEmptyMessage for %q, got %v", msg, err)
		}
	}

	// Validation failures leave no session state behind.
	previews, err := st.ListConversationPreviews(ctx, "u1", 0, 10)
	if err != nil {
		t.Fatalf("ListConversationPreviews failed: %v", err)
	}
	if len(previews) != 0 {
		t.Fatalf("empty messages must not create conversations, got %+v", previews)
	}
}

func TestProcessUserMessageApologyOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, "u1", 2000)
	svc := New(&failingStore{Store: st}, ai.NewSimulated(), &config.Config{ModelBackend: config.BackendSimulated})

	result, err := svc.ProcessUserMessage(ctx, "u1", "你好")
	if err != nil {
		t.Fatalf("turn failures must not surface as errors, got %v", err)
	}
	if result.Message != apologyMessage {
		t.Fatalf("expected apology reply, got %q", result.Message)
	}
	if result.ConversationID != "" {
		t.Fatalf("apology result should carry no conversation id, got %q", result.ConversationID)
	}
}

func TestResolveConversationReusesWithinWindow(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedUser(t, st, "u1", 2000)

	first, err := svc.ResolveConversation(ctx, "u1")
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	second, err := svc.ResolveConversation(ctx, "u1")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if first.ConversationID != second.ConversationID {
		t.Fatalf("fresh conversation not reused: %s vs %s", first.ConversationID, second.ConversationID)
	}
}

func TestResolveConversationConcurrent(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedUser(t, st, "u1", 2000)

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := svc.ResolveConversation(ctx, "u1")
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = conv.ConversationID
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("workers resolved different conversations: %v", ids)
		}
	}
}

func TestResolveConversationSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedUser(t, st, "u1", 2000)
	logFood(t, st, "u1", "f1", 2500, startOfToday().Add(time.Hour))

	conv, err := svc.ResolveConversation(ctx, "u1")
	if err != nil {
		t.Fatalf("ResolveConversation failed: %v", err)
	}
	if len(conv.Context.RecentFoodIDs) != 1 || conv.Context.RecentFoodIDs[0] != "f1" {
		t.Fatalf("snapshot missing recent foods: %+v", conv.Context)
	}
	if conv.Context.CalorieStatus != domain.CalorieStatusOverGoal {
		t.Fatalf("expected over_goal snapshot, got %s", conv.Context.CalorieStatus)
	}
	if len(conv.Context.HealthGoals) != 1 {
		t.Fatalf("snapshot missing health goals: %+v", conv.Context)
	}
}

func TestGetConversationHistory(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedUser(t, st, "u1", 2000)

	result, err := svc.ProcessUserMessage(ctx, "u1", "你好")
	if err != nil {
		t.Fatalf("ProcessUserMessage failed: %v", err)
	}

	byID, err := svc.GetConversationHistory(ctx, "u1", result.ConversationID)
	if err != nil {
		t.Fatalf("GetConversationHistory by id failed: %v", err)
	}
	if len(byID.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(byID.Messages))
	}

	current, err := svc.GetConversationHistory(ctx, "u1", "")
	if err != nil {
		t.Fatalf("GetConversationHistory current failed: %v", err)
	}
	if current.ConversationID != result.ConversationID {
		t.Fatalf("current conversation mismatch: %s vs %s", current.ConversationID, result.ConversationID)
	}

	if _, err := svc.GetConversationHistory(ctx, "u1", "conv_missing"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListConversationsPagination(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedUser(t, st, "u1", 2000)

	if _, err := svc.ProcessUserMessage(ctx, "u1", "你好"); err != nil {
		t.Fatalf("ProcessUserMessage failed: %v", err)
	}

	previews, err := svc.ListConversations(ctx, "u1", 0, 0)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(previews) != 1 {
		t.Fatalf("expected 1 preview, got %d", len(previews))
	}
	if previews[0].Preview != "你好" || previews[0].MessageCount != 2 {
		t.Fatalf("unexpected preview: %+v", previews[0])
	}

	empty, err := svc.ListConversations(ctx, "u1", 2, 10)
	if err != nil {
		t.Fatalf("ListConversations page 2 failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty second page, got %+v", empty)
	}
}
