package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrichat/nutrichat/internal/ai"
	"github.com/nutrichat/nutrichat/internal/config"
	"github.com/nutrichat/nutrichat/internal/domain"
	"github.com/nutrichat/nutrichat/internal/service"
	"github.com/nutrichat/nutrichat/internal/store"
)

func newTestServer(t *testing.T) (*echo.Echo, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := service.New(st, ai.NewSimulated(), &config.Config{ModelBackend: config.BackendSimulated})

	e := echo.New()
	NewHandler(svc).RegisterRoutes(e)
	return e, st
}

func seedUser(t *testing.T, st store.Store, userID string) {
	t.Helper()
	err := st.CreateUser(context.Background(), &domain.User{
		UserID:           userID,
		Username:         "tester",
		DailyCalorieGoal: 2000,
	})
	require.NoError(t, err)
}

func doRequest(e *echo.Echo, method, target, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSendMessage(t *testing.T) {
	e, st := newTestServer(t)
	seedUser(t, st, "u1")

	rec := doRequest(e, http.MethodPost, "/v1/conversations/messages", "u1", `{"message":"你好"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var result service.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Message)
	assert.NotEmpty(t, result.ConversationID)
}

func TestSendMessageEmpty(t *testing.T) {
	e, st := newTestServer(t)
	seedUser(t, st, "u1")

	rec := doRequest(e, http.MethodPost, "/v1/conversations/messages", "u1", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "消息内容不能为空")
}

func TestSendMessageMissingUser(t *testing.T) {
	e, st := newTestServer(t)
	seedUser(t, st, "u1")

	rec := doRequest(e, http.MethodPost, "/v1/conversations/messages", "", `{"message":"你好"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The 401 must be the only document in the response; the handler must
	// not have gone on to run the turn for an empty user.
	dec := json.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
	var errResp map[string]interface{}
	require.NoError(t, dec.Decode(&errResp))
	assert.False(t, dec.More(), "response carries more than the error document: %q", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "conversation_id")

	previews, err := st.ListConversationPreviews(context.Background(), "u1", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, previews)
}

func TestMissingUserRejectedOnAllRoutes(t *testing.T) {
	e, _ := newTestServer(t)

	routes := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/v1/conversations/messages"},
		{http.MethodGet, "/v1/conversations"},
		{http.MethodGet, "/v1/conversations/current"},
		{http.MethodGet, "/v1/conversations/conv_x"},
		{http.MethodGet, "/v1/advice"},
		{http.MethodPost, "/v1/advice/daily"},
		{http.MethodPut, "/v1/advice/adv_x/read"},
	}
	for _, r := range routes {
		rec := doRequest(e, r.method, r.target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.target)

		dec := json.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
		var errResp map[string]interface{}
		require.NoError(t, dec.Decode(&errResp), "%s %s", r.method, r.target)
		assert.False(t, dec.More(), "%s %s wrote past the 401: %q", r.method, r.target, rec.Body.String())
	}
}

func TestConversationEndpoints(t *testing.T) {
	e, st := newTestServer(t)
	seedUser(t, st, "u1")

	rec := doRequest(e, http.MethodPost, "/v1/conversations/messages", "u1", `{"message":"我想减肥"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var result service.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	// Current conversation resolves to the one just used.
	rec = doRequest(e, http.MethodGet, "/v1/conversations/current", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var current domain.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, result.ConversationID, current.ConversationID)
	assert.Len(t, current.Messages, 2)

	// Lookup by id.
	rec = doRequest(e, http.MethodGet, "/v1/conversations/"+result.ConversationID, "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Foreign user cannot see it.
	seedUser(t, st, "u2")
	rec = doRequest(e, http.MethodGet, "/v1/conversations/"+result.ConversationID, "u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// List view.
	rec = doRequest(e, http.MethodGet, "/v1/conversations?page=1&limit=5", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Conversations []domain.ConversationPreview `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Conversations, 1)
	assert.Equal(t, "我想减肥", listResp.Conversations[0].Preview)
}

func TestAdviceEndpoints(t *testing.T) {
	e, st := newTestServer(t)
	seedUser(t, st, "u1")

	// The weight-loss reply carries an extracted advice record.
	rec := doRequest(e, http.MethodPost, "/v1/conversations/messages", "u1", `{"message":"我想减肥"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/advice", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Advice []domain.DietaryAdvice `json:"advice"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Advice, 1)
	assert.Equal(t, domain.AdviceTypeResponse, listResp.Advice[0].Type)
	assert.False(t, listResp.Advice[0].IsRead)

	// Filtering by an unknown type is rejected.
	rec = doRequest(e, http.MethodGet, "/v1/advice?type=bogus", "u1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Mark as read.
	adviceID := listResp.Advice[0].AdviceID
	rec = doRequest(e, http.MethodPut, "/v1/advice/"+adviceID+"/read", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var updated domain.DietaryAdvice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.True(t, updated.IsRead)

	rec = doRequest(e, http.MethodPut, "/v1/advice/adv_missing/read", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateDailyAdvice(t *testing.T) {
	e, st := newTestServer(t)
	seedUser(t, st, "u1")

	rec := doRequest(e, http.MethodPost, "/v1/advice/daily", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var advice domain.DietaryAdvice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &advice))
	assert.Equal(t, domain.AdviceTypeDaily, advice.Type)
	assert.NotEmpty(t, advice.Content)
	assert.NotZero(t, advice.GeneratedAt)

	// Daily advice for a missing user is a 404.
	rec = doRequest(e, http.MethodPost, "/v1/advice/daily", "nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
