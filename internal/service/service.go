// Package service implements the conversation orchestration engine.
package service

import (
	"errors"
	"time"

	"github.com/nutrichat/nutrichat/internal/ai"
	"github.com/nutrichat/nutrichat/internal/config"
	"github.com/nutrichat/nutrichat/internal/store"
)

// FreshnessWindow is how long a conversation stays current for reuse. Turns
// arriving after the window start a new conversation; histories are never
// merged across conversations.
const FreshnessWindow = 24 * time.Hour

// recentFoodLimit bounds the recent-food set captured in a conversation's
// context snapshot.
const recentFoodLimit = 3

// apologyMessage is the generic user-visible reply when a turn fails. Raw
// error detail never reaches the user.
const apologyMessage = "抱歉，我现在无法处理您的请求。请稍后再试。"

// ErrEmptyMessage is returned when a turn arrives without message content.
// No session state is touched in that case.
var ErrEmptyMessage = errors.New("message content is required")

// Service composes the session store, the context builder, the model backend
// and the advice pipeline into single-turn operations.
type Service struct {
	store     store.Store
	generator ai.Generator
	config    *config.Config
}

// New creates the service.
func New(store store.Store, generator ai.Generator, cfg *config.Config) *Service {
	return &Service{
		store:     store,
		generator: generator,
		config:    cfg,
	}
}
