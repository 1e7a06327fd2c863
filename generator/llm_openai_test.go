package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model          string           `json:"model"`
	Messages       []map[string]any `json:"messages"`
	ResponseFormat map[string]any   `json:"response_format"`
}

func fakeCompletions(t *testing.T, status int, reply string, got *capturedRequest) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if got != nil {
			require.NoError(t, json.Unmarshal(data, got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newFakeOpenAI(t *testing.T, url string) *OpenAILLM {
	t.Helper()
	llm, err := NewOpenAILLMFromConfig(&LLMSettings{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-test", BaseURL: url + "/"})
	require.NoError(t, err)
	return llm
}

const completionReply = `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"<p>ok</p>"}}]}`

func TestOpenAILLM_Complete(t *testing.T) {
	var got capturedRequest
	ts := fakeCompletions(t, http.StatusOK, completionReply, &got)
	llm := newFakeOpenAI(t, ts.URL)

	out, err := llm.Complete(context.Background(), BuildRefinePrompt("<p>x</p>", "shorter"))
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0]["role"])
	assert.Equal(t, "user", got.Messages[1]["role"])
	assert.Nil(t, got.ResponseFormat)
}

func TestOpenAILLM_DraftAsksForJSON(t *testing.T) {
	var got capturedRequest
	ts := fakeCompletions(t, http.StatusOK, completionReply, &got)
	llm := newFakeOpenAI(t, ts.URL)

	_, err := llm.Complete(context.Background(), BuildDraftPrompt(academicBrief))
	require.NoError(t, err)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
}

func TestOpenAILLM_EmptyChoices(t *testing.T) {
	ts := fakeCompletions(t, http.StatusOK, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil)
	llm := newFakeOpenAI(t, ts.URL)

	_, err := llm.Complete(context.Background(), BuildRefinePrompt("<p>x</p>", "y"))
	assert.ErrorIs(t, err, ErrEmptyChoices)
}

func TestOpenAILLM_ServerErrorThroughAgent(t *testing.T) {
	ts := fakeCompletions(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, nil)
	a := newTestAgent(t, newFakeOpenAI(t, ts.URL), WithMaxRetries(0))

	_, err := a.Refine(context.Background(), "<p>x</p>", "y")
	assert.ErrorIs(t, err, ErrService)
}

func TestNewOpenAILLMFromConfig_Validates(t *testing.T) {
	_, err := NewOpenAILLMFromConfig(nil)
	assert.Error(t, err)
	_, err = NewOpenAILLMFromConfig(&LLMSettings{Model: "m"})
	assert.ErrorContains(t, err, "api key")
	_, err = NewOpenAILLMFromConfig(&LLMSettings{APIKey: "k"})
	assert.ErrorContains(t, err, "model")
}

func TestNewLLM(t *testing.T) {
	llm, err := NewLLM(LLMSettings{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, MockLLM{}, llm)

	_, err = NewLLM(LLMSettings{Provider: "deepseek", Model: "m", APIKey: "k"})
	assert.ErrorContains(t, err, "base_url")

	_, err = NewLLM(LLMSettings{})
	assert.Error(t, err)

	_, err = NewLLM(LLMSettings{Provider: "claude"})
	assert.ErrorContains(t, err, "not supported")
}
