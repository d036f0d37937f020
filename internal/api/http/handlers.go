package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codecraft-ai/backend/internal/api/middleware"
	"github.com/codecraft-ai/backend/internal/api/ws"
	"github.com/codecraft-ai/backend/internal/domain/renderer"
	"github.com/codecraft-ai/backend/internal/domain/session"
	"github.com/codecraft-ai/backend/internal/infrastructure/monitoring"
	"github.com/codecraft-ai/backend/internal/logging"
	"github.com/codecraft-ai/backend/internal/providers/auth"
	"github.com/codecraft-ai/backend/internal/shared/id"
	"github.com/codecraft-ai/backend/internal/shared/types"
	"github.com/codecraft-ai/backend/internal/storage"
)

// maxImageBytes caps inline image uploads passed to the model.
const maxImageBytes = 8 << 20

// Handlers contains all HTTP handlers.
type Handlers struct {
	sessions *session.Manager
	auth     *auth.Provider
	assets   *renderer.AssetCache
	bridge   *ws.Bridge
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandlers creates a new handler set. assets may be nil when the CDN is
// used directly; metrics may be nil.
func NewHandlers(
	sessions *session.Manager,
	authProvider *auth.Provider,
	assets *renderer.AssetCache,
	bridge *ws.Bridge,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Handlers {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Handlers{
		sessions: sessions,
		auth:     authProvider,
		assets:   assets,
		bridge:   bridge,
		metrics:  metrics,
		logger:   logger,
	}
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "CodeCraft AI Backend",
		"version": "1.0.0",
	})
}

// Health handles the health check.
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{"status": "healthy"}
	if h.metrics != nil {
		resp["uptime_seconds"] = h.metrics.Uptime().Seconds()
	}
	c.JSON(http.StatusOK, resp)
}

// Signup registers an account and logs it in.
func (h *Handlers) Signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, storage.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, _, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login after signup failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

// Login verifies credentials and issues a bearer token.
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Logout invalidates the caller's token.
func (h *Handlers) Logout(c *gin.Context) {
	h.auth.Logout(bearerToken(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the authenticated account.
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.auth.User(c.Request.Context(), bearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// CreateSession starts a new empty session.
func (h *Handlers) CreateSession(c *gin.Context) {
	rec, err := h.sessions.Create(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sessionSummary(rec)})
}

// ListSessions returns the caller's sessions, newest first.
func (h *Handlers) ListSessions(c *gin.Context) {
	records, err := h.sessions.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summaries := make([]gin.H, 0, len(records))
	for i := range records {
		summaries = append(summaries, sessionSummary(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries, "count": len(summaries)})
}

// GetSession returns one session with its full transcript.
func (h *Handlers) GetSession(c *gin.Context) {
	rec, ok := h.ownedSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":  sessionSummary(rec),
		"messages": rec.Messages,
	})
}

// DeleteSession removes a session.
func (h *Handlers) DeleteSession(c *gin.Context) {
	rec, ok := h.ownedSession(c)
	if !ok {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), rec.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Chat runs one generation turn against the session.
func (h *Handlers) Chat(c *gin.Context) {
	rec, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req struct {
		Prompt   string `json:"prompt" binding:"required"`
		ImageURL string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt required"})
		return
	}
	if err := validateImageURL(req.ImageURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.sessions.Chat(c.Request.Context(), rec.ID, req.Prompt, req.ImageURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"accepted":  result.Accepted,
		"component": result.Component,
		"name":      result.Name,
		"messages":  result.Messages,
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	if result.Mount != nil {
		resp["preview"] = mountSummary(result.Mount)
	}
	c.JSON(http.StatusOK, resp)
}

// PropertyEdit applies one visual edit to the selected element.
func (h *Handlers) PropertyEdit(c *gin.Context) {
	rec, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req struct {
		Selector string `json:"selector" binding:"required"`
		Property string `json:"property" binding:"required"`
		Value    string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "selector and property required"})
		return
	}

	edit := types.PropertyEdit{
		Selector: req.Selector,
		Property: types.Property(req.Property),
		Value:    req.Value,
	}
	applied, err := h.sessions.ApplyPropertyEdit(c.Request.Context(), rec.ID, edit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// ManualEdit replaces the working component with hand-edited code.
func (h *Handlers) ManualEdit(c *gin.Context) {
	rec, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req struct {
		JSX string `json:"jsx"`
		CSS string `json:"css"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	mount, err := h.sessions.SetComponent(c.Request.Context(), rec.ID,
		types.WorkingComponent{Body: req.JSX, Style: req.CSS})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "preview": mountSummary(mount)})
}

// SaveSession flushes the session to storage immediately.
func (h *Handlers) SaveSession(c *gin.Context) {
	rec, ok := h.ownedSession(c)
	if !ok {
		return
	}
	if err := h.sessions.Save(c.Request.Context(), rec.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Preview serves the sandbox document for the iframe. The route is public:
// the document runs inside a sandboxed frame and holds no credentials.
func (h *Handlers) Preview(c *gin.Context) {
	sessionID := c.Param("id")
	if !id.IsValid(sessionID, id.SessionPrefix) {
		c.String(http.StatusBadRequest, "invalid session id")
		return
	}

	mount, err := h.sessions.Mount(c.Request.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		c.String(http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		c.String(http.StatusInternalServerError, "preview unavailable")
		return
	}
	c.Header("Content-Security-Policy", "frame-ancestors 'self'")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(mount.Document))
}

// Export downloads the working component as a zip archive.
func (h *Handlers) Export(c *gin.Context) {
	rec, ok := h.ownedSession(c)
	if !ok {
		return
	}

	archive, err := h.sessions.Export(c.Request.Context(), rec.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=component.zip")
	c.Data(http.StatusOK, "application/zip", archive)
}

// Channel returns the preview channel key for the session.
func (h *Handlers) Channel(c *gin.Context) {
	rec, ok := h.ownedSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session": rec.ID,
		"key":     h.bridge.ChannelKey(rec.ID),
	})
}

// Asset serves a cached runtime script.
func (h *Handlers) Asset(c *gin.Context) {
	if h.assets == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset cache disabled"})
		return
	}

	data, err := h.assets.Script(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", data)
}

// ownedSession loads the session named in the route and checks that the
// caller owns it. A session owned by someone else reads as not found.
func (h *Handlers) ownedSession(c *gin.Context) (*types.SessionRecord, bool) {
	sessionID := c.Param("id")
	if !id.IsValid(sessionID, id.SessionPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil, false
	}

	rec, err := h.sessions.Get(c.Request.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	if err != nil {
		h.logger.Error("session load failed",
			zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session load failed"})
		return nil, false
	}
	if rec.UserID != middleware.UserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return rec, true
}

func sessionSummary(rec *types.SessionRecord) gin.H {
	return gin.H{
		"id":         rec.ID,
		"name":       rec.Name,
		"component":  rec.Component,
		"created_at": rec.CreatedAt,
		"updated_at": rec.UpdatedAt,
	}
}

func mountSummary(m *renderer.Mount) gin.H {
	summary := gin.H{
		"generation": m.Generation,
		"not_found":  m.NotFound,
	}
	if m.Fault != nil {
		summary["fault"] = m.Fault.Message
	}
	return summary
}

// validateImageURL accepts remote http(s) image URLs as-is and sniffs the
// payload of data URLs before the model sees them.
func validateImageURL(imageURL string) error {
	if imageURL == "" {
		return nil
	}
	if strings.HasPrefix(imageURL, "http://") || strings.HasPrefix(imageURL, "https://") {
		return nil
	}
	if !strings.HasPrefix(imageURL, "data:") {
		return errors.New("image must be an http(s) URL or a data URL")
	}

	_, encoded, ok := strings.Cut(imageURL, ",")
	if !ok {
		return errors.New("malformed data URL")
	}
	if len(encoded) > maxImageBytes {
		return errors.New("image too large")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.New("malformed data URL")
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return errors.New("data URL is not an image")
	}
	return nil
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, prefix) {
		return header[len(prefix):]
	}
	return ""
}
