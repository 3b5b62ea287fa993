package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nutrichat/nutrichat/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			daily_calorie_goal INTEGER NOT NULL DEFAULT 2000,
			dietary_preferences TEXT,
			health_goals TEXT,
			allergens TEXT,
			protein_goal INTEGER NOT NULL DEFAULT 50,
			carbs_goal INTEGER NOT NULL DEFAULT 250,
			fat_goal INTEGER NOT NULL DEFAULT 70
		)`,
		`CREATE TABLE IF NOT EXISTS food_entries (
			food_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			calories INTEGER NOT NULL,
			protein REAL NOT NULL DEFAULT 0,
			fat REAL NOT NULL DEFAULT 0,
			carbs REAL NOT NULL DEFAULT 0,
			amount REAL NOT NULL DEFAULT 100,
			unit TEXT NOT NULL DEFAULT '克',
			meal_type TEXT NOT NULL DEFAULT 'snack',
			logged_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_food_entries_user_logged ON food_entries(user_id, logged_at)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			last_updated_at DATETIME NOT NULL,
			context TEXT,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_updated ON conversations(user_id, last_updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS dietary_advice (
			advice_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			related_food_ids TEXT,
			conversation_id TEXT,
			is_read INTEGER NOT NULL DEFAULT 0,
			generated_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_advice_user_generated ON dietary_advice(user_id, generated_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser creates a new user profile.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, daily_calorie_goal, dietary_preferences, health_goals, allergens, protein_goal, carbs_goal, fat_goal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.UserID, user.Username, user.DailyCalorieGoal,
		marshalStrings(user.DietaryPreferences), marshalStrings(user.HealthGoals), marshalStrings(user.Allergens),
		user.ProteinGoal, user.CarbsGoal, user.FatGoal)
	return err
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	var prefs, goals, allergens sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, daily_calorie_goal, dietary_preferences, health_goals, allergens, protein_goal, carbs_goal, fat_goal
		 FROM users WHERE user_id = ?`,
		userID).Scan(&user.UserID, &user.Username, &user.DailyCalorieGoal, &prefs, &goals, &allergens,
		&user.ProteinGoal, &user.CarbsGoal, &user.FatGoal)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.DietaryPreferences = unmarshalStrings(prefs)
	user.HealthGoals = unmarshalStrings(goals)
	user.Allergens = unmarshalStrings(allergens)
	return &user, nil
}

// CreateFoodEntry records a logged food item.
func (s *SQLiteStore) CreateFoodEntry(ctx context.Context, entry *domain.FoodEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO food_entries (food_id, user_id, name, calories, protein, fat, carbs, amount, unit, meal_type, logged_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.FoodID, entry.UserID, entry.Name, entry.Calories, entry.Protein, entry.Fat, entry.Carbs,
		entry.Amount, entry.Unit, entry.MealType, entry.LoggedAt)
	return err
}

// ListRecentFoods returns the most recently logged foods, most-recent-first.
func (s *SQLiteStore) ListRecentFoods(ctx context.Context, userID string, limit int) ([]domain.FoodEntry, error) {
	query := `SELECT food_id, user_id, name, calories, protein, fat, carbs, amount, unit, meal_type, logged_at
		 FROM food_entries WHERE user_id = ? ORDER BY logged_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFoodEntries(rows)
}

// ListFoodsSince returns foods logged at or after since, oldest-first.
func (s *SQLiteStore) ListFoodsSince(ctx context.Context, userID string, since time.Time) ([]domain.FoodEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT food_id, user_id, name, calories, protein, fat, carbs, amount, unit, meal_type, logged_at
		 FROM food_entries WHERE user_id = ? AND logged_at >= ? ORDER BY logged_at ASC`,
		userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFoodEntries(rows)
}

// GetFoodsByIDs resolves food references to full records. Unknown IDs are
// silently skipped.
func (s *SQLiteStore) GetFoodsByIDs(ctx context.Context, foodIDs []string) ([]domain.FoodEntry, error) {
	if len(foodIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(foodIDs))
	args := make([]interface{}, len(foodIDs))
	for i, id := range foodIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT food_id, user_id, name, calories, protein, fat, carbs, amount, unit, meal_type, logged_at
		 FROM food_entries WHERE food_id IN (%s) ORDER BY logged_at DESC`, strings.Join(placeholders, ",")),
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFoodEntries(rows)
}

// FindOrCreateConversation implements the atomic find-or-create. The select
// and insert run inside one BEGIN IMMEDIATE transaction: the write lock is
// taken up front, so concurrent resolves for the same user serialize and the
// loser's select sees the winner's row instead of failing busy or forking a
// duplicate.
func (s *SQLiteStore) FindOrCreateConversation(ctx context.Context, candidate *domain.Conversation, cutoff time.Time) (*domain.Conversation, bool, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			// Roll back off the request context so a cancellation cannot
			// leave an open transaction on the pooled connection.
			conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var conv domain.Conversation
	var contextJSON sql.NullString
	err = conn.QueryRowContext(ctx,
		`SELECT conversation_id, user_id, started_at, last_updated_at, context
		 FROM conversations
		 WHERE user_id = ? AND last_updated_at >= ?
		 ORDER BY last_updated_at DESC LIMIT 1`,
		candidate.UserID, cutoff).Scan(&conv.ConversationID, &conv.UserID, &conv.StartedAt, &conv.LastUpdatedAt, &contextJSON)
	if err == nil {
		if contextJSON.Valid {
			if err := json.Unmarshal([]byte(contextJSON.String), &conv.Context); err != nil {
				log.Printf("WARN: corrupt context snapshot for %s: %v", conv.ConversationID, err)
			}
		}
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return nil, false, err
		}
		committed = true
		return &conv, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	contextData, _ := json.Marshal(candidate.Context)
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, user_id, started_at, last_updated_at, context) VALUES (?, ?, ?, ?, ?)`,
		candidate.ConversationID, candidate.UserID, candidate.StartedAt, candidate.LastUpdatedAt, string(contextData)); err != nil {
		return nil, false, err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, false, err
	}
	committed = true
	return candidate, true, nil
}

// GetConversation retrieves a conversation with its messages. Conversations
// belonging to another user are reported as ErrNotFound.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var contextJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, user_id, started_at, last_updated_at, context
		 FROM conversations WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID).Scan(&conv.ConversationID, &conv.UserID, &conv.StartedAt, &conv.LastUpdatedAt, &contextJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if contextJSON.Valid {
		if err := json.Unmarshal([]byte(contextJSON.String), &conv.Context); err != nil {
			log.Printf("WARN: corrupt context snapshot for %s: %v", conv.ConversationID, err)
		}
	}
	messages, err := s.GetMessages(ctx, conv.ConversationID)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages
	return &conv, nil
}

// ListConversationPreviews returns list-view projections, most recently
// updated first.
func (s *SQLiteStore) ListConversationPreviews(ctx context.Context, userID string, offset, limit int) ([]domain.ConversationPreview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, started_at, last_updated_at FROM conversations
		 WHERE user_id = ? ORDER BY last_updated_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var previews []domain.ConversationPreview
	for rows.Next() {
		var p domain.ConversationPreview
		if err := rows.Scan(&p.ConversationID, &p.StartedAt, &p.LastUpdatedAt); err != nil {
			return nil, err
		}
		previews = append(previews, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range previews {
		var first sql.NullString
		err := s.db.QueryRowContext(ctx,
			`SELECT content FROM messages WHERE conversation_id = ? AND sender = 'user' ORDER BY created_at ASC LIMIT 1`,
			previews[i].ConversationID).Scan(&first)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if first.Valid {
			previews[i].Preview = truncateRunes(first.String, 50)
		}
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`,
			previews[i].ConversationID).Scan(&previews[i].MessageCount); err != nil {
			return nil, err
		}
	}
	return previews, nil
}

// GetMessages retrieves a conversation's messages in insertion order.
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, sender, content, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, rowid ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AppendTurn persists both messages of a turn and the freshness bump as one
// durable write.
func (s *SQLiteStore) AppendTurn(ctx context.Context, conversationID string, userMsg, assistantMsg *domain.Message, updatedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range []*domain.Message{userMsg, assistantMsg} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (message_id, conversation_id, sender, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			msg.MessageID, conversationID, msg.Sender, msg.Content, msg.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_updated_at = ? WHERE conversation_id = ?`,
		updatedAt, conversationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// CreateAdvice persists a new dietary advice record.
func (s *SQLiteStore) CreateAdvice(ctx context.Context, advice *domain.DietaryAdvice) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dietary_advice (advice_id, user_id, type, content, related_food_ids, conversation_id, is_read, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		advice.AdviceID, advice.UserID, advice.Type, advice.Content,
		marshalStrings(advice.RelatedFoodIDs), nullString(advice.ConversationID), advice.IsRead, advice.GeneratedAt)
	return err
}

// ListAdvice returns advice for a user, most-recent-first, optionally
// filtered by type, with related foods resolved.
func (s *SQLiteStore) ListAdvice(ctx context.Context, userID string, adviceType domain.AdviceType) ([]domain.DietaryAdvice, error) {
	query := `SELECT advice_id, user_id, type, content, related_food_ids, conversation_id, is_read, generated_at
		 FROM dietary_advice WHERE user_id = ?`
	args := []interface{}{userID}
	if adviceType != "" {
		query += ` AND type = ?`
		args = append(args, adviceType)
	}
	query += ` ORDER BY generated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var adviceList []domain.DietaryAdvice
	for rows.Next() {
		advice, err := scanAdvice(rows)
		if err != nil {
			return nil, err
		}
		adviceList = append(adviceList, *advice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range adviceList {
		if len(adviceList[i].RelatedFoodIDs) == 0 {
			continue
		}
		foods, err := s.GetFoodsByIDs(ctx, adviceList[i].RelatedFoodIDs)
		if err != nil {
			return nil, err
		}
		adviceList[i].RelatedFoods = foods
	}
	return adviceList, nil
}

// MarkAdviceRead sets the read flag and returns the updated record.
func (s *SQLiteStore) MarkAdviceRead(ctx context.Context, userID, adviceID string) (*domain.DietaryAdvice, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dietary_advice SET is_read = 1 WHERE advice_id = ? AND user_id = ?`,
		adviceID, userID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT advice_id, user_id, type, content, related_food_ids, conversation_id, is_read, generated_at
		 FROM dietary_advice WHERE advice_id = ?`, adviceID)
	return scanAdvice(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAdvice(row rowScanner) (*domain.DietaryAdvice, error) {
	var advice domain.DietaryAdvice
	var relatedIDs, conversationID sql.NullString
	err := row.Scan(&advice.AdviceID, &advice.UserID, &advice.Type, &advice.Content,
		&relatedIDs, &conversationID, &advice.IsRead, &advice.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	advice.RelatedFoodIDs = unmarshalStrings(relatedIDs)
	if conversationID.Valid {
		advice.ConversationID = conversationID.String
	}
	return &advice, nil
}

func scanFoodEntries(rows *sql.Rows) ([]domain.FoodEntry, error) {
	var entries []domain.FoodEntry
	for rows.Next() {
		var e domain.FoodEntry
		if err := rows.Scan(&e.FoodID, &e.UserID, &e.Name, &e.Calories, &e.Protein, &e.Fat, &e.Carbs,
			&e.Amount, &e.Unit, &e.MealType, &e.LoggedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func marshalStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func unmarshalStrings(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var values []string
	json.Unmarshal([]byte(ns.String), &values)
	return values
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func truncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
