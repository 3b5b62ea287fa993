package domain

import "time"

// User is the profile the assistant personalizes advice against.
// Account management lives outside this service; the fields here are read-only.
type User struct {
	UserID             string   `json:"user_id"`
	Username           string   `json:"username"`
	DailyCalorieGoal   int      `json:"daily_calorie_goal"`
	DietaryPreferences []string `json:"dietary_preferences"`
	HealthGoals        []string `json:"health_goals"`
	Allergens          []string `json:"allergens"`
	ProteinGoal        int      `json:"protein_goal"`
	CarbsGoal          int      `json:"carbs_goal"`
	FatGoal            int      `json:"fat_goal"`
}

// FoodEntry is a single logged food item.
type FoodEntry struct {
	FoodID   string    `json:"food_id"`
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Calories int       `json:"calories"`
	Protein  float64   `json:"protein"`
	Fat      float64   `json:"fat"`
	Carbs    float64   `json:"carbs"`
	Amount   float64   `json:"amount"`
	Unit     string    `json:"unit"`
	MealType MealType  `json:"meal_type"`
	LoggedAt time.Time `json:"logged_at"`
}

// Message is one utterance inside a conversation. Messages are immutable
// once appended and keep their insertion order.
type Message struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationContext is the snapshot captured when a conversation is created.
// It is not refreshed on later turns within the same conversation.
type ConversationContext struct {
	RecentFoodIDs      []string      `json:"recent_food_ids"`
	CalorieStatus      CalorieStatus `json:"calorie_status"`
	DietaryPreferences []string      `json:"dietary_preferences,omitempty"`
	HealthGoals        []string      `json:"health_goals,omitempty"`
}

// Conversation is a bounded-lifetime exchange between one user and the
// assistant. A conversation is reused for new turns only while its
// LastUpdatedAt falls within the freshness window.
type Conversation struct {
	ConversationID string              `json:"conversation_id"`
	UserID         string              `json:"user_id"`
	StartedAt      time.Time           `json:"started_at"`
	LastUpdatedAt  time.Time           `json:"last_updated_at"`
	Context        ConversationContext `json:"context"`
	Messages       []Message           `json:"messages,omitempty"`
}

// DietaryAdvice is a persisted unit of dietary guidance derived from an
// assistant reply. Advice is created by the pipeline only, and the only
// mutation after creation is the read flag.
type DietaryAdvice struct {
	AdviceID       string      `json:"advice_id"`
	UserID         string      `json:"user_id"`
	Type           AdviceType  `json:"type"`
	Content        string      `json:"content"`
	RelatedFoodIDs []string    `json:"related_food_ids"`
	RelatedFoods   []FoodEntry `json:"related_foods,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	IsRead         bool        `json:"is_read"`
	GeneratedAt    time.Time   `json:"generated_at"`
}

// ConversationPreview is the list-view projection of a conversation.
type ConversationPreview struct {
	ConversationID string    `json:"conversation_id"`
	StartedAt      time.Time `json:"started_at"`
	LastUpdatedAt  time.Time `json:"last_updated_at"`
	Preview        string    `json:"preview"`
	MessageCount   int       `json:"message_count"`
}
