package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecraft-ai/backend/internal/domain/renderer"
	"github.com/codecraft-ai/backend/internal/domain/renderer/sandbox"
	"github.com/codecraft-ai/backend/internal/providers/ai"
	"github.com/codecraft-ai/backend/internal/shared/types"
	"github.com/codecraft-ai/backend/internal/storage"
)

const validRaw = "```jsx\nfunction Component(){return <div id=\"greeting\">hi</div>}\n```\n/* CSS */\n#greeting{color:red}"

type fakeGen struct {
	mu        sync.Mutex
	replies   []string
	requests  []ai.GenerateRequest
	name      string
	nameCalls int
}

func (f *fakeGen) GenerateComponent(_ context.Context, req ai.GenerateRequest) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.replies) == 0 {
		return validRaw
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply
}

func (f *fakeGen) GenerateSessionName(_ context.Context, _ []types.ChatMessage) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nameCalls++
	if f.name == "" {
		return types.DefaultSessionName
	}
	return f.name
}

type recorder struct {
	mu         sync.Mutex
	names      []string
	texts      []string
	components int
}

func (r *recorder) SessionNameUpdated(_, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recorder) ElementTextUpdated(_, selector, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, selector+"="+text)
}

func (r *recorder) ComponentUpdated(_ string, _ types.WorkingComponent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components++
}

func newTestManager(t *testing.T, gen *fakeGen) (*Manager, *recorder, string) {
	t.Helper()
	notes := &recorder{}
	store := storage.NewStore(storage.NewMemory(), nil)
	m := NewManager(store, gen, renderer.New(nil, renderer.DefaultDocumentConfig()), notes, nil)

	rec, err := m.Create(context.Background(), "user_1")
	require.NoError(t, err)
	return m, notes, rec.ID
}

func TestCreateStartsEmpty(t *testing.T) {
	m, _, sid := newTestManager(t, &fakeGen{})
	ctx := context.Background()

	rec, err := m.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultSessionName, rec.Name)
	assert.True(t, rec.Component.Empty(), "nothing persisted before the first edit")

	// An empty session still renders: the welcome screen fills in.
	mount, err := m.Mount(ctx, sid)
	require.NoError(t, err)
	assert.Contains(t, mount.Document, "Welcome to CodeCraft AI")
}

func TestChatAcceptedCommits(t *testing.T) {
	gen := &fakeGen{name: "Greeting Card"}
	m, notes, sid := newTestManager(t, gen)
	ctx := context.Background()

	result, err := m.Chat(ctx, sid, "make a greeting", "")
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.Empty(t, result.Warning)
	assert.Equal(t, `function Component(){return <div id="greeting">hi</div>}`, result.Component.Body)
	assert.Equal(t, "#greeting{color:red}", result.Component.Style)
	assert.Equal(t, "Greeting Card", result.Name)
	require.Len(t, result.Messages, 2)
	assert.Equal(t, "make a greeting", result.Messages[0].Content, "transcript keeps the raw prompt")
	assert.Equal(t, validRaw, result.Messages[1].Content, "transcript keeps the raw reply")

	assert.Equal(t, 1, notes.components)
	assert.Equal(t, []string{"Greeting Card"}, notes.names)

	// The save lands after the debounce window; flush and check storage.
	require.NoError(t, m.Save(ctx, sid))
	rec, err := m.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, result.Component, rec.Component)
}

func TestChatRejectedKeepsWorkingComponent(t *testing.T) {
	gen := &fakeGen{name: "Greeting Card", replies: []string{validRaw, "<html><body>nope</body></html>"}}
	m, _, sid := newTestManager(t, gen)
	ctx := context.Background()

	first, err := m.Chat(ctx, sid, "make a greeting", "")
	require.NoError(t, err)
	require.True(t, first.Accepted)

	second, err := m.Chat(ctx, sid, "wrap it in a page", "")
	require.NoError(t, err)

	assert.False(t, second.Accepted)
	assert.NotEmpty(t, second.Warning)
	assert.Equal(t, first.Component, second.Component, "rejected turn leaves the component untouched")
	assert.Len(t, second.Messages, 4, "rejected output still lands in the transcript")
}

func TestChatPromptAugmentation(t *testing.T) {
	gen := &fakeGen{name: "Greeting Card"}
	m, _, sid := newTestManager(t, gen)
	ctx := context.Background()

	_, err := m.Chat(ctx, sid, "a pricing card", "")
	require.NoError(t, err)
	_, err = m.Chat(ctx, sid, "make it blue", "")
	require.NoError(t, err)

	require.Len(t, gen.requests, 2)
	assert.Contains(t, gen.requests[0].Prompt, "Create a React function component named Component")
	assert.Contains(t, gen.requests[0].Prompt, "a pricing card")
	assert.Empty(t, gen.requests[0].History)
	assert.Empty(t, gen.requests[0].CurrentBody, "fresh session has no current code")

	// Second turn carries the prior transcript and the committed component.
	assert.Len(t, gen.requests[1].History, 2)
	assert.Contains(t, gen.requests[1].CurrentBody, "function Component")
	assert.Contains(t, gen.requests[1].CurrentStyle, "#greeting")
}

func TestChatNamesSessionOnce(t *testing.T) {
	gen := &fakeGen{name: "Greeting Card"}
	m, _, sid := newTestManager(t, gen)
	ctx := context.Background()

	_, err := m.Chat(ctx, sid, "one", "")
	require.NoError(t, err)
	_, err = m.Chat(ctx, sid, "two", "")
	require.NoError(t, err)

	assert.Equal(t, 1, gen.nameCalls, "a named session is never renamed")
}

func TestPropertyEditAppendsMonotonically(t *testing.T) {
	gen := &fakeGen{name: "Greeting Card"}
	m, notes, sid := newTestManager(t, gen)
	ctx := context.Background()

	_, err := m.Chat(ctx, sid, "make a greeting", "")
	require.NoError(t, err)

	applied, err := m.ApplyPropertyEdit(ctx, sid, types.PropertyEdit{
		Selector: "#greeting", Property: types.PropColor, Value: "#fff",
	})
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = m.ApplyPropertyEdit(ctx, sid, types.PropertyEdit{
		Selector: "#greeting", Property: types.PropFontSize, Value: "18",
	})
	require.NoError(t, err)
	require.True(t, applied)

	rec, err := m.Get(ctx, sid)
	require.NoError(t, err)
	style := rec.Component.Style

	first := strings.Index(style, "#greeting { color: #fff !important; }")
	second := strings.Index(style, "#greeting { font-size: 18px !important; }")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second, "later rules append after earlier ones")
	assert.Contains(t, style, "#greeting{color:red}", "the generated stylesheet is never rewritten")

	assert.Equal(t, 3, notes.components, "one rebuild per style edit")
}

func TestPropertyEditValidation(t *testing.T) {
	m, _, sid := newTestManager(t, &fakeGen{})
	ctx := context.Background()

	_, err := m.ApplyPropertyEdit(ctx, sid, types.PropertyEdit{Selector: "#x", Property: "rotation", Value: "90"})
	assert.Error(t, err)

	_, err = m.ApplyPropertyEdit(ctx, sid, types.PropertyEdit{Property: types.PropColor, Value: "red"})
	assert.Error(t, err)
}

func TestTextEditLivePush(t *testing.T) {
	m, notes, sid := newTestManager(t, &fakeGen{})
	ctx := context.Background()

	sess, err := m.open(ctx, sid)
	require.NoError(t, err)

	mirror, err := renderer.NewMirror(&sandbox.Node{
		Tag: "div",
		Children: []*sandbox.Node{
			{Tag: "h1", Props: map[string]interface{}{"id": "title"}, Children: []*sandbox.Node{{Text: "Old"}}},
		},
	})
	require.NoError(t, err)
	sess.mount = &renderer.Mount{Mirror: mirror}

	applied, err := m.ApplyPropertyEdit(ctx, sid, types.PropertyEdit{
		Selector: "#title", Property: types.PropText, Value: "New",
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, []string{"#title=New"}, notes.texts)
	assert.Equal(t, 0, notes.components, "text edits never rebuild")

	text, _ := mirror.Text("#title")
	assert.Equal(t, "New", text)
}

func TestTextEditStaleSelectorDropsSilently(t *testing.T) {
	m, notes, sid := newTestManager(t, &fakeGen{})
	ctx := context.Background()

	sess, err := m.open(ctx, sid)
	require.NoError(t, err)

	mirror, err := renderer.NewMirror(&sandbox.Node{Tag: "div"})
	require.NoError(t, err)
	sess.mount = &renderer.Mount{Mirror: mirror}

	applied, err := m.ApplyPropertyEdit(ctx, sid, types.PropertyEdit{
		Selector: "#vanished", Property: types.PropText, Value: "New",
	})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, notes.texts, "stale edits reach no client")
}

func TestSetComponentTrusted(t *testing.T) {
	m, notes, sid := newTestManager(t, &fakeGen{})
	ctx := context.Background()

	// Hand-edited code skips validation even when the gates would reject it.
	mount, err := m.SetComponent(ctx, sid, types.WorkingComponent{
		Body:  "const x = 1",
		Style: ".a{}",
	})
	require.NoError(t, err)
	assert.Contains(t, mount.Document, "const x = 1")
	assert.Equal(t, 1, notes.components)

	require.NoError(t, m.Save(ctx, sid))
	rec, err := m.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "const x = 1", rec.Component.Body)
}

func TestDebouncedSave(t *testing.T) {
	m, _, sid := newTestManager(t, &fakeGen{name: "X"})
	ctx := context.Background()

	_, err := m.Chat(ctx, sid, "make a greeting", "")
	require.NoError(t, err)

	// The write lands after the debounce window without an explicit save.
	require.Eventually(t, func() bool {
		rec, err := m.store.GetSession(ctx, sid)
		return err == nil && !rec.Component.Empty()
	}, 3*time.Second, 50*time.Millisecond)
}

func TestExport(t *testing.T) {
	m, _, sid := newTestManager(t, &fakeGen{})
	ctx := context.Background()

	data, err := m.Export(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]), "zip archive")
}

func TestDelete(t *testing.T) {
	m, _, sid := newTestManager(t, &fakeGen{})
	ctx := context.Background()

	require.NoError(t, m.Delete(ctx, sid))
	_, err := m.Get(ctx, sid)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// slowPersistence stretches every write so a delete can race an
// in-flight debounced save.
type slowPersistence struct {
	*storage.Memory
	delay time.Duration
}

func (s *slowPersistence) PutSession(ctx context.Context, rec *types.SessionRecord) error {
	time.Sleep(s.delay)
	return s.Memory.PutSession(ctx, rec)
}

func TestDeleteWinsOverInFlightSave(t *testing.T) {
	persist := &slowPersistence{Memory: storage.NewMemory(), delay: 500 * time.Millisecond}
	store := storage.NewStore(persist, nil)
	m := NewManager(store, &fakeGen{name: "X"}, renderer.New(nil, renderer.DefaultDocumentConfig()), &recorder{}, nil)
	ctx := context.Background()

	rec, err := m.Create(ctx, "user_1")
	require.NoError(t, err)

	_, err = m.Chat(ctx, rec.ID, "make a greeting", "")
	require.NoError(t, err)

	// Let the debounce fire so its save is mid-write when the delete lands.
	time.Sleep(saveDelay + 100*time.Millisecond)
	require.NoError(t, m.Delete(ctx, rec.ID))

	// Even after the slow write drains, the session must stay deleted.
	time.Sleep(persist.delay + 200*time.Millisecond)
	_, err = m.store.GetSession(ctx, rec.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "deleted session must stay deleted")
}
