package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecraft-ai/backend/internal/shared/types"
)

// fakeProvider is an OpenAI-compatible endpoint that records request bodies.
type fakeProvider struct {
	srv      *httptest.Server
	requests [][]byte
	reply    string
	status   int
}

func newFakeProvider(t *testing.T, reply string) *fakeProvider {
	t.Helper()
	f := &fakeProvider{reply: reply, status: http.StatusOK}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.requests = append(f.requests, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		if f.status == http.StatusOK {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]interface{}{"role": "assistant", "content": f.reply}},
				},
			})
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeProvider) client() *Client {
	return New(Config{APIKey: "test-key", BaseURL: f.srv.URL + "/", Model: "gpt-4o-mini"})
}

func TestGenerateComponent(t *testing.T) {
	provider := newFakeProvider(t, "function Component(){return null}")
	client := provider.client()

	out := client.GenerateComponent(context.Background(), GenerateRequest{
		Prompt: "make a card",
	})

	assert.Equal(t, "function Component(){return null}", out)
	require.Len(t, provider.requests, 1)
	assert.NotContains(t, string(provider.requests[0]), "Current JSX",
		"no system prompt on a fresh session")
}

func TestGenerateComponentPatchPrompt(t *testing.T) {
	provider := newFakeProvider(t, "function Component(){return null}")
	client := provider.client()

	client.GenerateComponent(context.Background(), GenerateRequest{
		Prompt:       "make the button red",
		CurrentBody:  "function Component(){return <button/>}",
		CurrentStyle: ".btn { color: blue; }",
		History: []types.ChatMessage{
			{Role: types.RoleUser, Content: "make a button"},
			{Role: types.RoleAssistant, Content: "function Component(){return <button/>}"},
		},
	})

	require.Len(t, provider.requests, 1)
	body := string(provider.requests[0])
	assert.Contains(t, body, "Current JSX")
	assert.Contains(t, body, ".btn { color: blue; }")
	assert.Contains(t, body, "not just a patch or snippet")
	assert.Contains(t, body, "make a button")
}

func TestGenerateComponentImage(t *testing.T) {
	provider := newFakeProvider(t, "function Component(){return null}")
	client := provider.client()

	client.GenerateComponent(context.Background(), GenerateRequest{
		Prompt:   "recreate this",
		ImageURL: "data:image/png;base64,AAAA",
	})

	require.Len(t, provider.requests, 1)
	body := string(provider.requests[0])
	assert.Contains(t, body, "image_url")
	assert.Contains(t, body, "data:image/png;base64,AAAA")
}

func TestGenerateComponentFailureBecomesCommentBody(t *testing.T) {
	provider := newFakeProvider(t, "")
	provider.status = http.StatusInternalServerError
	client := provider.client()

	out := client.GenerateComponent(context.Background(), GenerateRequest{Prompt: "x"})

	assert.Contains(t, out, "// Error generating component:")
}
