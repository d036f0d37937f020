package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codecraft-ai/backend/internal/domain/codegen"
	"github.com/codecraft-ai/backend/internal/domain/renderer"
	"github.com/codecraft-ai/backend/internal/infrastructure/monitoring"
	"github.com/codecraft-ai/backend/internal/logging"
	"github.com/codecraft-ai/backend/internal/providers/ai"
	"github.com/codecraft-ai/backend/internal/providers/export"
	"github.com/codecraft-ai/backend/internal/shared/id"
	"github.com/codecraft-ai/backend/internal/shared/types"
	"github.com/codecraft-ai/backend/internal/storage"
)

// saveDelay is how long after the last change the debounced save fires.
const saveDelay = 800 * time.Millisecond

// turnPrompt steers every chat turn toward the one shape the pipeline
// accepts.
const turnPrompt = `Create a React function component named Component for the following: %s
Do NOT use HTML, <html>, <body>, <head>, or markdown. Only output a function component and CSS, separated by /* CSS */.`

// Generator is the model client. *ai.Client satisfies it.
type Generator interface {
	GenerateComponent(ctx context.Context, req ai.GenerateRequest) string
	GenerateSessionName(ctx context.Context, history []types.ChatMessage) string
}

// Notifier pushes live updates to connected clients. All methods must be
// non-blocking.
type Notifier interface {
	SessionNameUpdated(sessionID, name string)
	ElementTextUpdated(sessionID, selector, text string)
	ComponentUpdated(sessionID string, component types.WorkingComponent)
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	Accepted  bool
	Warning   string
	Component types.WorkingComponent
	Mount     *renderer.Mount
	Name      string
	Messages  []types.ChatMessage
}

// editSession is the live state of one open session.
type editSession struct {
	mu        sync.Mutex
	record    *types.SessionRecord
	mount     *renderer.Mount
	saveTimer *time.Timer
	dirty     bool
	deleted   bool
}

// Manager owns all live sessions.
type Manager struct {
	store    *storage.Store
	gen      Generator
	renderer *renderer.Renderer
	notifier Notifier
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu       sync.Mutex
	sessions map[string]*editSession
}

func NewManager(store *storage.Store, gen Generator, r *renderer.Renderer, notifier Notifier, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Manager{
		store:    store,
		gen:      gen,
		renderer: r,
		notifier: notifier,
		logger:   logger,
		sessions: make(map[string]*editSession),
	}
}

// WithMetrics attaches a metrics collector.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create starts a new, empty session for a user.
func (m *Manager) Create(ctx context.Context, userID string) (*types.SessionRecord, error) {
	now := time.Now()
	rec := &types.SessionRecord{
		ID:        id.NewSessionID().String(),
		UserID:    userID,
		Name:      types.DefaultSessionName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.SaveSession(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the current state of a session, live edits included.
func (m *Manager) Get(ctx context.Context, sessionID string) (*types.SessionRecord, error) {
	sess, err := m.open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	rec := *sess.record
	return &rec, nil
}

// List returns a user's sessions, newest first.
func (m *Manager) List(ctx context.Context, userID string) ([]types.SessionRecord, error) {
	return m.store.ListSessions(ctx, userID)
}

// Delete removes a session and its live state.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess := m.sessions[sessionID]
	if sess != nil {
		delete(m.sessions, sessionID)
		if m.metrics != nil {
			m.metrics.SessionsLive.Set(float64(len(m.sessions)))
		}
	}
	m.mu.Unlock()

	if sess != nil {
		// A debounced save may be past its timer already. Taking the
		// session lock orders this delete after any flush that is mid-write,
		// and the deleted mark stops every flush that has not started yet.
		sess.mu.Lock()
		if sess.saveTimer != nil {
			sess.saveTimer.Stop()
		}
		sess.deleted = true
		sess.dirty = false
		sess.mu.Unlock()
	}

	return m.store.DeleteSession(ctx, sessionID)
}

// Chat runs one generation turn: prompt in, validated component or warning
// out. The per-session lock serializes turns, so two prompts for the same
// session cannot race on the working component.
func (m *Manager) Chat(ctx context.Context, sessionID, prompt, imageURL string) (*TurnResult, error) {
	sess, err := m.open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	turnStart := time.Now()
	history := append([]types.ChatMessage(nil), sess.record.Messages...)
	current := sess.component()

	raw := m.gen.GenerateComponent(ctx, ai.GenerateRequest{
		Prompt:       fmt.Sprintf(turnPrompt, prompt),
		History:      history,
		ImageURL:     imageURL,
		CurrentBody:  current.Body,
		CurrentStyle: current.Style,
	})

	now := time.Now()
	sess.record.Messages = append(sess.record.Messages,
		types.ChatMessage{Role: types.RoleUser, Content: prompt, Timestamp: now},
		types.ChatMessage{Role: types.RoleAssistant, Content: raw, Timestamp: now},
	)

	result := &TurnResult{}

	out := codegen.Normalize(raw)
	verdict := codegen.Validate(out)
	if m.metrics != nil {
		outcome := "accepted"
		if !verdict.Accepted {
			outcome = string(*verdict.Reason)
		}
		m.metrics.RecordTurn(outcome, time.Since(turnStart))
	}
	if verdict.Accepted {
		sess.record.Component = types.WorkingComponent{Body: out.Body, Style: out.Style}
		if err := m.remount(ctx, sess); err != nil {
			return nil, err
		}
		if m.notifier != nil {
			m.notifier.ComponentUpdated(sessionID, sess.record.Component)
		}
		result.Accepted = true
	} else {
		// The working component is untouched; the user sees the warning
		// and the last good render.
		result.Warning = verdict.Reason.Message()
		m.logger.Info("generation rejected",
			zap.String("session_id", sessionID),
			zap.String("reason", string(*verdict.Reason)))
	}

	if sess.record.Name == types.DefaultSessionName && len(sess.record.Messages) > 0 {
		if name := m.gen.GenerateSessionName(ctx, sess.record.Messages); name != types.DefaultSessionName {
			sess.record.Name = name
			if m.notifier != nil {
				m.notifier.SessionNameUpdated(sessionID, name)
			}
		}
	}

	sess.dirty = true
	m.scheduleSave(sess)

	result.Component = sess.component()
	result.Mount = sess.mount
	result.Name = sess.record.Name
	result.Messages = append([]types.ChatMessage(nil), sess.record.Messages...)
	return result, nil
}

// ApplyPropertyEdit applies one edit to the selected element. Style edits
// append an override rule and rebuild once; the stylesheet history is never
// rewritten, so later rules keep winning over earlier ones. Text edits push
// straight to live previews without a rebuild. The returned bool reports
// whether the edit applied; a stale selector drops the edit silently.
func (m *Manager) ApplyPropertyEdit(ctx context.Context, sessionID string, edit types.PropertyEdit) (bool, error) {
	if !edit.Property.Valid() {
		return false, fmt.Errorf("unknown property %q", edit.Property)
	}
	if edit.Selector == "" {
		return false, fmt.Errorf("selector required")
	}

	sess, err := m.open(ctx, sessionID)
	if err != nil {
		return false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if edit.Property == types.PropText {
		if sess.mount != nil && sess.mount.Mirror != nil {
			if !sess.mount.Mirror.ApplyText(edit.Selector, edit.Value) {
				m.recordEdit("text", false)
				return false, nil
			}
		}
		if m.notifier != nil {
			m.notifier.ElementTextUpdated(sessionID, edit.Selector, edit.Value)
		}
		m.recordEdit("text", true)
		return true, nil
	}

	value := edit.Value
	if edit.Property.NeedsPixelUnit() {
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			value += "px"
		}
	}

	component := sess.component()
	component.Style += fmt.Sprintf("\n%s { %s: %s !important; }",
		edit.Selector, edit.Property.CSSName(), value)
	sess.record.Component = component

	if err := m.remount(ctx, sess); err != nil {
		return false, err
	}
	if m.notifier != nil {
		m.notifier.ComponentUpdated(sessionID, component)
	}

	sess.dirty = true
	m.scheduleSave(sess)
	m.recordEdit("style", true)
	return true, nil
}

func (m *Manager) recordEdit(kind string, applied bool) {
	if m.metrics != nil {
		m.metrics.PropertyEdits.WithLabelValues(kind, strconv.FormatBool(applied)).Inc()
	}
}

// SetComponent replaces the working component with code the user edited by
// hand. Manual edits are trusted: they skip the validation gates.
func (m *Manager) SetComponent(ctx context.Context, sessionID string, component types.WorkingComponent) (*renderer.Mount, error) {
	sess, err := m.open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.record.Component = component
	if err := m.remount(ctx, sess); err != nil {
		return nil, err
	}
	if m.notifier != nil {
		m.notifier.ComponentUpdated(sessionID, component)
	}

	sess.dirty = true
	m.scheduleSave(sess)
	return sess.mount, nil
}

// Mount returns the current render of a session, building it on first use.
func (m *Manager) Mount(ctx context.Context, sessionID string) (*renderer.Mount, error) {
	sess, err := m.open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.mount == nil {
		if err := m.remount(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess.mount, nil
}

// Export packages the working component for download.
func (m *Manager) Export(ctx context.Context, sessionID string) ([]byte, error) {
	sess, err := m.open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return export.Archive(sess.component())
}

// Save flushes a session to storage immediately, bypassing the debounce.
func (m *Manager) Save(ctx context.Context, sessionID string) error {
	sess, err := m.open(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.saveTimer != nil {
		sess.saveTimer.Stop()
	}
	return m.flushLocked(ctx, sess)
}

// Shutdown flushes every dirty session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*editSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		if sess.saveTimer != nil {
			sess.saveTimer.Stop()
		}
		if err := m.flushLocked(ctx, sess); err != nil {
			m.logger.Error("flush on shutdown failed",
				zap.String("session_id", sess.record.ID), zap.Error(err))
		}
		sess.mu.Unlock()
	}
}

// remount rebuilds the session's mount and records the render.
func (m *Manager) remount(ctx context.Context, sess *editSession) error {
	start := time.Now()
	if err := sess.remount(ctx, m.renderer); err != nil {
		return err
	}
	if m.metrics != nil {
		m.metrics.RecordRender(time.Since(start), sess.mount.Faulted())
	}
	return nil
}

// open returns the live session, loading it from storage on first access.
func (m *Manager) open(ctx context.Context, sessionID string) (*editSession, error) {
	m.mu.Lock()
	if sess, ok := m.sessions[sessionID]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	rec, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have opened it while we were loading.
	if sess, ok := m.sessions[sessionID]; ok {
		return sess, nil
	}
	sess := &editSession{record: rec}
	m.sessions[sessionID] = sess
	if m.metrics != nil {
		m.metrics.SessionsLive.Set(float64(len(m.sessions)))
	}
	return sess, nil
}

// scheduleSave arms the debounced save, replacing any pending one.
func (m *Manager) scheduleSave(sess *editSession) {
	if sess.saveTimer != nil {
		sess.saveTimer.Stop()
	}
	sess.saveTimer = time.AfterFunc(saveDelay, func() {
		sess.mu.Lock()
		defer sess.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.flushLocked(ctx, sess); err != nil {
			m.logger.Error("debounced save failed",
				zap.String("session_id", sess.record.ID), zap.Error(err))
		}
	})
}

func (m *Manager) flushLocked(ctx context.Context, sess *editSession) error {
	if sess.deleted || !sess.dirty {
		return nil
	}
	sess.record.UpdatedAt = time.Now()
	if err := m.store.SaveSession(ctx, sess.record); err != nil {
		return err
	}
	sess.dirty = false
	if m.metrics != nil {
		m.metrics.SessionsSaved.Inc()
	}
	return nil
}

// component returns what this session renders: its own component, or the
// welcome screen while the record is still empty.
func (s *editSession) component() types.WorkingComponent {
	if s.record.Component.Empty() {
		return DefaultComponent()
	}
	return s.record.Component
}

func (s *editSession) remount(ctx context.Context, r *renderer.Renderer) error {
	c := s.component()
	mount, err := r.Mount(ctx, c.Body, c.Style)
	if err != nil {
		return err
	}
	s.mount = mount
	return nil
}
