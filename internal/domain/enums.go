// Package domain defines the core domain models for the nutrition assistant.
package domain

// Sender identifies which side of the conversation authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// AdviceType classifies a piece of dietary advice.
type AdviceType string

const (
	AdviceTypeDaily      AdviceType = "daily"
	AdviceTypeWeekly     AdviceType = "weekly"
	AdviceTypeResponse   AdviceType = "response"
	AdviceTypeSuggestion AdviceType = "suggestion"
)

// Valid reports whether t is one of the known advice types.
func (t AdviceType) Valid() bool {
	switch t {
	case AdviceTypeDaily, AdviceTypeWeekly, AdviceTypeResponse, AdviceTypeSuggestion:
		return true
	}
	return false
}

// CalorieStatus describes today's consumed calories relative to the user's goal.
type CalorieStatus string

const (
	CalorieStatusUnderGoal CalorieStatus = "under_goal"
	CalorieStatusOverGoal  CalorieStatus = "over_goal"
	CalorieStatusNearGoal  CalorieStatus = "near_goal"
	CalorieStatusUnknown   CalorieStatus = "unknown"
)

// MealType identifies which meal a food entry belongs to.
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
)
