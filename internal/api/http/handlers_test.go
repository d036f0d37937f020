package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecraft-ai/backend/internal/api/middleware"
	"github.com/codecraft-ai/backend/internal/api/ws"
	"github.com/codecraft-ai/backend/internal/domain/renderer"
	"github.com/codecraft-ai/backend/internal/domain/session"
	"github.com/codecraft-ai/backend/internal/providers/ai"
	"github.com/codecraft-ai/backend/internal/providers/auth"
	"github.com/codecraft-ai/backend/internal/shared/types"
	"github.com/codecraft-ai/backend/internal/storage"
)

const validReply = "```jsx\n" +
	"function Component() {\n" +
	"  return <div id=\"greeting\">Hello</div>;\n" +
	"}\n" +
	"```\n" +
	"/* CSS */\n" +
	"#greeting { color: red; }\n"

type fakeGen struct {
	reply string
	name  string
}

func (g *fakeGen) GenerateComponent(_ context.Context, _ ai.GenerateRequest) string {
	return g.reply
}

func (g *fakeGen) GenerateSessionName(_ context.Context, _ []types.ChatMessage) string {
	return g.name
}

type fixture struct {
	router *gin.Engine
	auth   *auth.Provider
	bridge *ws.Bridge
	gen    *fakeGen
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewStore(storage.NewMemory(), nil)
	gen := &fakeGen{reply: validReply, name: "Greeting Card"}
	r := renderer.New(nil, renderer.DefaultDocumentConfig())
	authProvider := auth.NewProvider(storage.NewMemory())
	bridge := ws.NewBridge(authProvider, nil, nil)
	sessions := session.NewManager(store, gen, r, bridge, nil)
	t.Cleanup(func() { sessions.Shutdown(context.Background()) })

	h := NewHandlers(sessions, authProvider, nil, bridge, nil, nil)

	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.POST("/auth/signup", h.Signup)
	router.POST("/auth/login", h.Login)
	router.GET("/sessions/:id/preview", h.Preview)

	protected := router.Group("/", middleware.Auth(authProvider))
	protected.POST("/auth/logout", h.Logout)
	protected.GET("/auth/me", h.Me)
	protected.POST("/sessions", h.CreateSession)
	protected.GET("/sessions", h.ListSessions)
	protected.GET("/sessions/:id", h.GetSession)
	protected.DELETE("/sessions/:id", h.DeleteSession)
	protected.POST("/sessions/:id/chat", h.Chat)
	protected.POST("/sessions/:id/property-edit", h.PropertyEdit)
	protected.POST("/sessions/:id/manual-edit", h.ManualEdit)
	protected.POST("/sessions/:id/save", h.SaveSession)
	protected.GET("/sessions/:id/export", h.Export)
	protected.GET("/sessions/:id/channel", h.Channel)

	return &fixture{router: router, auth: authProvider, bridge: bridge, gen: gen}
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (f *fixture) signup(t *testing.T, email string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/auth/signup", "", gin.H{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func (f *fixture) createSession(t *testing.T, token string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/sessions", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sess := decode(t, w)["session"].(map[string]interface{})
	return sess["id"].(string)
}

func TestRootAndHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", decode(t, w)["status"])

	w = f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignupLoginMe(t *testing.T) {
	f := newFixture(t)
	token := f.signup(t, "dev@example.com")

	w := f.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "dev@example.com", user["email"])
	assert.NotContains(t, w.Body.String(), "password")

	// Same email again conflicts.
	w = f.do(t, http.MethodPost, "/auth/signup", "", gin.H{
		"email": "dev@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Wrong password is rejected uniformly.
	w = f.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email": "dev@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email": "dev@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	f := newFixture(t)
	token := f.signup(t, "dev@example.com")

	w := f.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	token := f.signup(t, "dev@example.com")
	sessionID := f.createSession(t, token)

	w := f.do(t, http.MethodGet, "/sessions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = f.do(t, http.MethodGet, "/sessions/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	sess := body["session"].(map[string]interface{})
	assert.Equal(t, types.DefaultSessionName, sess["name"])

	w = f.do(t, http.MethodDelete, "/sessions/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/sessions/"+sessionID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionOwnership(t *testing.T) {
	f := newFixture(t)
	tokenA := f.signup(t, "a@example.com")
	tokenB := f.signup(t, "b@example.com")
	sessionID := f.createSession(t, tokenA)

	// Another user's session reads as not found, not forbidden.
	w := f.do(t, http.MethodGet, "/sessions/"+sessionID, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, "/sessions/"+sessionID, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/sessions", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatTurn(t *testing.T) {
	f := newFixture(t)
	token := f.signup(t, "dev@example.com")
	sessionID := f.createSession(t, token)

	w := f.do(t, http.MethodPost, "/sessions/"+sessionID+"/chat", token, gin.H{
		"prompt": "make a greeting card",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, "Greeting Card", body["name"])

	component := body["component"].(map[string]interface{})
	assert.Contains(t, component["jsx"], "function Component")
	assert.Contains(t, component["css"], "#greeting")

	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "make a greeting card", first["content"])
}

func TestChatRejectedKeepsWarning(t *testing.T) {
	f := newFixture(t)
	f.gen.reply = "<html><body>nope</body></html>"
	token := f.signup(t, "dev@example.com")
	sessionID := f.createSession(t, token)

	w := f.do(t, http.MethodPost, "/sessions/"+sessionID+"/chat", token, gin.H{
		"prompt": "make a page",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["accepted"])
	assert.NotEmpty(t, body["warning"])
}

func TestChatImageValidation(t *testing.T) {
	f := newFixture(t)
	token := f.signup(t, "dev@example.com")
	sessionID := f.createSession(t, token)

	pngMagic := base64.StdEncoding.EncodeToString(
		[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	w := f.do(t, http.MethodPost, "/sessions/"+sessionID+"/chat", token, gin.H{
		"prompt":    "match this screenshot",
		"image_url": "data:image/png;base64," + pngMagic,
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	textPayload := base64.StdEncoding.EncodeToString([]byte("just some text"))
	w = f.do(t, http.MethodPost, "/sessions/"+sessionID+"/chat", token, gin.H{
		"prompt":    "match this",
		"image_url": "data:image/png;base64," + textPayload,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/sessions/"+sessionID+"/chat", token, gin.H{
		"prompt":    "match this",
		"image_url": "file:///etc/passwd",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPropertyEdit(t *testing.T) {
	f := newFixture(t)
	token := f.signup(t, "dev@example.com")
	sessionID := f.createSession(t, token)

	w := f.do(t, http.MethodPost, "/sessions/"+sessionID+"/chat", token, gin.H{
		"prompt": "greeting",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/sessions/"+sessionID+"/property-edit", token, gin.H{
		"selector": "#greeting", "property": "fontSize", "value": "18",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["applied"])

	w = f.do(t, http.MethodGet, "/sessions/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sess := decode(t, w)["session"].(map[string]interface{})
	component := sess["component"].(map[string]interface{})
	assert.Contains(t, component["css"], "#greeting { font-size: 18px !important; }")

	w = f.do(t, http.MethodPost, "/sessions/"+sessionID+"/property-edit", token, gin.H{
		"selector": "#greeting", "property": "rotation", "value": "45",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestManualEditAndPreview(t *testing.T) {
	f := newFixture(t)
	token := f.signup(t, "dev@example.com")
	sessionID := f.createSession(t, token)

	w := f.do(t, http.MethodPost, "/sessions/"+sessionID+"/manual-edit", token, gin.H{
		"jsx": "function Component() { return <p>Edited</p>; }",
		"css": ".edited { color: blue; }",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The preview route is public so the iframe can load it.
	w = f.do(t, http.MethodGet, "/sessions/"+sessionID+"/preview", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), ".edited { color: blue; }")
	assert.Contains(t, w.Body.String(), "function Component() { return <p>Edited</p>; }")
}

func TestPreviewShowsWelcomeScreen(t *testing.T) {
	f := newFixture(t)
	token := f.signup(t, "dev@example.com")
	sessionID := f.createSession(t, token)

	w := f.do(t, http.MethodGet, "/sessions/"+sessionID+"/preview", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome to CodeCraft AI")
}

func TestPreviewUnknownSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/sessions/not-an-id/preview", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/sessions/sess_7b1c2a9e-0000-4000-8000-000000000000/preview", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	token := f.signup(t, "dev@example.com")
	sessionID := f.createSession(t, token)

	w := f.do(t, http.MethodGet, "/sessions/"+sessionID+"/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "component.zip")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestChannel(t *testing.T) {
	f := newFixture(t)
	token := f.signup(t, "dev@example.com")
	sessionID := f.createSession(t, token)

	w := f.do(t, http.MethodGet, "/sessions/"+sessionID+"/channel", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	key := decode(t, w)["key"].(string)
	assert.NotEmpty(t, key)

	w = f.do(t, http.MethodGet, "/sessions/"+sessionID+"/channel", token, nil)
	assert.Equal(t, key, decode(t, w)["key"])
}

func TestValidateImageURL(t *testing.T) {
	assert.NoError(t, validateImageURL(""))
	assert.NoError(t, validateImageURL("https://example.com/shot.png"))
	assert.Error(t, validateImageURL("data:image/png;base64"))
	assert.Error(t, validateImageURL("data:image/png;base64,%%%"))
	assert.Error(t, validateImageURL("ftp://example.com/shot.png"))
}
