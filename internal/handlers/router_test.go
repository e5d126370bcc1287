package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/ideaverse-chat/internal/database"
	"github.com/thereayou/ideaverse-chat/internal/handlers"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"github.com/thereayou/ideaverse-chat/internal/testutil"
	"github.com/thereayou/ideaverse-chat/internal/websocket"
	"github.com/thereayou/ideaverse-chat/pkg/auth"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiEnv struct {
	db     *database.Database
	jwt    *auth.JWTManager
	hub    *websocket.Hub
	router *gin.Engine
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.NewDatabase(t)
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	log := zap.NewNop()

	gate, err := services.NewGate(log)
	require.NoError(t, err)

	hub := websocket.NewHub(log)
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := handlers.NewRouter(handlers.Deps{
		Chat:     services.NewChatService(db, gate, log, services.Options{}),
		Resolver: services.NewIdentityResolver(jwtMgr, db, rdb, log),
		Users:    db,
		Hub:      hub,
		Log:      log,
	})

	return &apiEnv{db: db, jwt: jwtMgr, hub: hub, router: router}
}

func (e *apiEnv) token(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := e.jwt.Generate(u.ID.String(), string(u.Role))
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

type roomJSON struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	UnreadCount  int64     `json:"unreadCount"`
	OnlineCount  int       `json:"onlineCount"`
	Participants []struct {
		UserID   uuid.UUID `json:"userId"`
		Role     string    `json:"role"`
		IsOnline *bool     `json:"isOnline"`
	} `json:"participants"`
	LastMessage *messageJSON  `json:"lastMessage"`
	Messages    []messageJSON `json:"messages"`
}

type messageJSON struct {
	ID          uint64          `json:"id"`
	RoomID      uuid.UUID       `json:"roomId"`
	SenderID    uuid.UUID       `json:"senderId"`
	Text        string          `json:"text"`
	Attachments json.RawMessage `json:"attachments"`
	ReadBy      []uuid.UUID     `json:"readBy"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodGet, "/api/chat/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "UNAUTHENTICATED", body.Error.Code)

	status, _ = env.do(t, http.MethodGet, "/api/chat/rooms", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBlockedUserRejected(t *testing.T) {
	env := newAPIEnv(t)

	blocked := &models.User{Name: "blocked", Email: "blocked@ideaverse.test", Role: models.RoleCreator, IsBlocked: true}
	require.NoError(t, env.db.SaveUser(context.Background(), blocked))

	status, body := env.do(t, http.MethodGet, "/api/chat/rooms", env.token(t, blocked), nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
}

func TestProjectRoomFlow(t *testing.T) {
	env := newAPIEnv(t)

	creator := testutil.CreateUser(t, env.db, "creator", models.RoleCreator)
	stranger := testutil.CreateUser(t, env.db, "stranger", models.RoleFreelancer)
	idea := testutil.CreateIdea(t, env.db, "Solar kiosk", creator, false)
	creatorToken := env.token(t, creator)

	status, body := env.do(t, http.MethodGet, "/api/chat/project/"+idea.ID.String(), creatorToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	room := decode[roomJSON](t, body.Data)
	assert.Equal(t, "Project: Solar kiosk", room.Name)
	assert.Equal(t, "project", room.Type)

	roomPath := "/api/chat/rooms/" + room.ID.String()

	status, body = env.do(t, http.MethodPost, roomPath+"/messages", creatorToken, map[string]any{
		"text":        "  hello  ",
		"attachments": []map[string]string{{"url": "https://cdn/x.png"}},
	})
	require.Equal(t, http.StatusCreated, status)
	msg := decode[messageJSON](t, body.Data)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, creator.ID, msg.SenderID)
	assert.JSONEq(t, `[{"url":"https://cdn/x.png"}]`, string(msg.Attachments))

	status, body = env.do(t, http.MethodGet, roomPath+"/messages?limit=10", creatorToken, nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[struct {
		Messages []messageJSON `json:"messages"`
		HasMore  bool          `json:"hasMore"`
	}](t, body.Data)
	require.Len(t, page.Messages, 1)
	assert.False(t, page.HasMore)

	status, body = env.do(t, http.MethodPost, roomPath+"/messages", creatorToken, map[string]any{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)

	status, body = env.do(t, http.MethodGet, roomPath, env.token(t, stranger), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)

	status, body = env.do(t, http.MethodGet, "/api/chat/rooms/not-a-uuid", creatorToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)

	status, body = env.do(t, http.MethodGet, "/api/chat/project/"+uuid.NewString(), creatorToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)

	status, _ = env.do(t, http.MethodGet, roomPath+"/messages?before=abc", creatorToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoomListUnreadAndSweep(t *testing.T) {
	env := newAPIEnv(t)

	creator := testutil.CreateUser(t, env.db, "creator", models.RoleCreator)
	admin := testutil.CreateUser(t, env.db, "admin", models.RoleAdmin)
	idea := testutil.CreateIdea(t, env.db, "Idea", creator, false)
	creatorToken, adminToken := env.token(t, creator), env.token(t, admin)

	_, body := env.do(t, http.MethodGet, "/api/chat/project/"+idea.ID.String(), creatorToken, nil)
	room := decode[roomJSON](t, body.Data)
	roomPath := "/api/chat/rooms/" + room.ID.String()

	status, _ := env.do(t, http.MethodPost, roomPath+"/messages", adminToken, map[string]any{"text": "ping"})
	require.Equal(t, http.StatusCreated, status)

	status, body = env.do(t, http.MethodGet, "/api/chat/rooms", creatorToken, nil)
	require.Equal(t, http.StatusOK, status)
	rooms := decode[[]roomJSON](t, body.Data)
	require.Len(t, rooms, 1)
	assert.Equal(t, int64(1), rooms[0].UnreadCount)
	require.NotNil(t, rooms[0].LastMessage)
	assert.Equal(t, "ping", rooms[0].LastMessage.Text)

	status, body = env.do(t, http.MethodGet, roomPath, creatorToken, nil)
	require.Equal(t, http.StatusOK, status)
	detail := decode[roomJSON](t, body.Data)
	require.Len(t, detail.Messages, 1)
	assert.Contains(t, detail.Messages[0].ReadBy, creator.ID)

	_, body = env.do(t, http.MethodGet, "/api/chat/rooms?type=project", creatorToken, nil)
	rooms = decode[[]roomJSON](t, body.Data)
	require.Len(t, rooms, 1)
	assert.Zero(t, rooms[0].UnreadCount)

	_, body = env.do(t, http.MethodGet, "/api/chat/rooms?type=job", creatorToken, nil)
	assert.Empty(t, decode[[]roomJSON](t, body.Data))

	status, body = env.do(t, http.MethodPut, roomPath+"/read", creatorToken, nil)
	require.Equal(t, http.StatusOK, status)
	marked := decode[struct {
		Marked int64 `json:"marked"`
	}](t, body.Data)
	assert.Zero(t, marked.Marked)
}

func TestRoomMembers(t *testing.T) {
	env := newAPIEnv(t)

	u1 := testutil.CreateUser(t, env.db, "u1", models.RoleFreelancer)
	u2 := testutil.CreateUser(t, env.db, "u2", models.RoleRecruiter)

	status, body := env.do(t, http.MethodPost, "/api/chat/direct", env.token(t, u1), map[string]string{"userId": u2.ID.String()})
	require.Equal(t, http.StatusOK, status)
	room := decode[roomJSON](t, body.Data)
	assert.Equal(t, "direct", room.Type)

	status, body = env.do(t, http.MethodGet, "/api/chat/rooms/"+room.ID.String()+"/members", env.token(t, u2), nil)
	require.Equal(t, http.StatusOK, status)
	members := decode[[]struct {
		UserID   uuid.UUID `json:"userId"`
		IsOnline *bool     `json:"isOnline"`
	}](t, body.Data)
	require.Len(t, members, 2)
	for _, m := range members {
		require.NotNil(t, m.IsOnline)
		assert.False(t, *m.IsOnline)
	}

	status, body = env.do(t, http.MethodPost, "/api/chat/direct", env.token(t, u1), map[string]string{"userId": u1.ID.String()})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestInvestorRoutes(t *testing.T) {
	env := newAPIEnv(t)

	creator := testutil.CreateUser(t, env.db, "creator", models.RoleCreator)
	investor := testutil.CreateUser(t, env.db, "inv1", models.RoleInvestor)
	second := testutil.CreateUser(t, env.db, "inv2", models.RoleInvestor)
	pitched := testutil.CreateIdea(t, env.db, "Pitched", creator, true)
	testutil.CreateIdea(t, env.db, "Draft", creator, false)
	invToken := env.token(t, investor)

	status, body := env.do(t, http.MethodGet, "/api/investor/pitched-ideas", env.token(t, creator), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)

	status, body = env.do(t, http.MethodGet, "/api/investor/pitched-ideas", invToken, nil)
	require.Equal(t, http.StatusOK, status)
	ideas := decode[[]struct {
		ID uuid.UUID `json:"id"`
	}](t, body.Data)
	require.Len(t, ideas, 1)
	assert.Equal(t, pitched.ID, ideas[0].ID)

	status, body = env.do(t, http.MethodGet, "/api/investor/discussions/idea/"+pitched.ID.String(), invToken, nil)
	require.Equal(t, http.StatusOK, status)
	room := decode[roomJSON](t, body.Data)
	assert.Equal(t, "investment", room.Type)

	addPath := "/api/investor/discussions/" + room.ID.String() + "/add-investor"
	status, body = env.do(t, http.MethodPost, addPath, invToken, map[string]string{"investorId": second.ID.String()})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[roomJSON](t, body.Data).Participants, 2)

	status, body = env.do(t, http.MethodPost, addPath, invToken, map[string]string{"investorId": second.ID.String()})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_EXISTS", body.Error.Code)

	status, body = env.do(t, http.MethodPost, addPath, invToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/api/investor/discussions", env.token(t, second), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]roomJSON](t, body.Data), 1)
}

func TestUserMe(t *testing.T) {
	env := newAPIEnv(t)
	user := testutil.CreateUser(t, env.db, "me", models.RoleRecruiter)

	status, body := env.do(t, http.MethodGet, "/api/users/me", env.token(t, user), nil)
	require.Equal(t, http.StatusOK, status)
	me := decode[struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
		Role  string    `json:"role"`
	}](t, body.Data)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "me@ideaverse.test", me.Email)
	assert.Equal(t, "recruiter", me.Role)

	status, _ = env.do(t, http.MethodGet, "/api/users/"+uuid.NewString(), env.token(t, user), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newAPIEnv(t)
	user := testutil.CreateUser(t, env.db, "leaver", models.RoleCreator)
	token := env.token(t, user)

	status, _ := env.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodGet, "/api/chat/rooms", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", body.Error.Code)
}

func TestRoomMessages_HasMoreBeyondHistoryCap(t *testing.T) {
	env := newAPIEnv(t)

	creator := testutil.CreateUser(t, env.db, "creator", models.RoleCreator)
	idea := testutil.CreateIdea(t, env.db, "Idea", creator, false)
	token := env.token(t, creator)

	_, body := env.do(t, http.MethodGet, "/api/chat/project/"+idea.ID.String(), token, nil)
	room := decode[roomJSON](t, body.Data)
	path := "/api/chat/rooms/" + room.ID.String() + "/messages"

	for i := 0; i < 105; i++ {
		status, _ := env.do(t, http.MethodPost, path, token, map[string]any{"text": "m"})
		require.Equal(t, http.StatusCreated, status)
	}

	type page struct {
		Messages []messageJSON `json:"messages"`
		HasMore  bool          `json:"hasMore"`
	}

	for _, query := range []string{"", "?limit=500"} {
		status, body := env.do(t, http.MethodGet, path+query, token, nil)
		require.Equal(t, http.StatusOK, status)
		p := decode[page](t, body.Data)
		assert.Len(t, p.Messages, 100, query)
		assert.True(t, p.HasMore, query)
	}

	_, body = env.do(t, http.MethodGet, path, token, nil)
	first := decode[page](t, body.Data).Messages[0].ID

	status, body := env.do(t, http.MethodGet, fmt.Sprintf("%s?before=%d", path, first), token, nil)
	require.Equal(t, http.StatusOK, status)
	older := decode[page](t, body.Data)
	assert.Len(t, older.Messages, 5)
	assert.False(t, older.HasMore)

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("%s?limit=5&before=%d", path, first), token, nil)
	require.Equal(t, http.StatusOK, status)
	exact := decode[page](t, body.Data)
	assert.Len(t, exact.Messages, 5)
	assert.False(t, exact.HasMore)
}
