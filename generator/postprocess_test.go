package generator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDraft(t *testing.T) {
	raw := "```json\n" + `{
  "title": "AI 기술, 지금 알아야 할 동향",
  "content": "<h2>들어가며</h2><p>본문</p><img src=\"https://image.pollinations.ai/prompt/ai?seed=1\" alt=\"AI\" />",
  "tags": ["#AI", " 기술 ", "", "트렌드"],
  "sources": [{"title": "네이버 뉴스", "url": "https://news.naver.com/1"}, {"title": "", "url": "https://x"}]
}` + "\n```"

	a, err := parseDraft(raw)
	require.NoError(t, err)
	assert.Equal(t, "AI 기술, 지금 알아야 할 동향", a.Title)
	assert.Equal(t, []string{"AI", "기술", "트렌드"}, a.Tags)
	require.Len(t, a.Sources, 1)
	assert.Equal(t, "https://news.naver.com/1", a.Sources[0].URL)
	assert.Contains(t, a.Body, `<img src="https://image.pollinations.ai/prompt/ai?seed=1"`)
}

func TestParseDraft_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"not json", "Here is your post!"},
		{"array", `["a"]`},
		{"missing title", `{"content": "<p>x</p>", "tags": ["a"]}`},
		{"missing content", `{"title": "t", "tags": ["a"]}`},
		{"empty tags", `{"title": "t", "content": "<p>x</p>", "tags": []}`},
		{"blank tags", `{"title": "t", "content": "<p>x</p>", "tags": ["  ", "#"]}`},
		{"malformed body", `{"title": "t", "content": "<div><p>x</p>", "tags": ["a"]}`},
		{"title as object", `{"title": {"x": 1}, "content": "<p>x</p>", "tags": ["a"]}`},
		{"title as number", `{"title": 42, "content": "<p>x</p>", "tags": ["a"]}`},
		{"content as array", `{"title": "t", "content": ["<p>x</p>"], "tags": ["a"]}`},
		{"tags as string", `{"title": "t", "content": "<p>x</p>", "tags": "ai"}`},
		{"tags without strings", `{"title": "t", "content": "<p>x</p>", "tags": [{"a": 1}, 3, true]}`},
		{"sources as object", `{"title": "t", "content": "<p>x</p>", "tags": ["a"], "sources": {"title": "s"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDraft(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchema))
			assert.Equal(t, ReasonSchema, ReasonOf(err))
		})
	}
}

func TestParseDraft_DropsWronglyTypedElements(t *testing.T) {
	raw := `{
  "title": "t",
  "content": "<p>x</p>",
  "tags": ["ai", {"a": 1}, 7, "tech"],
  "sources": [
    {"title": "kept", "url": "https://a"},
    {"title": "no url"},
    {"title": {"x": 1}, "url": "https://b"},
    {"title": "bad url", "url": 5},
    "just a string"
  ]
}`
	a, err := parseDraft(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"ai", "tech"}, a.Tags)
	require.Len(t, a.Sources, 2)
	assert.Equal(t, "kept", a.Sources[0].Title)
	assert.Equal(t, "no url", a.Sources[1].Title)
	assert.Empty(t, a.Sources[1].URL)

	a, err = parseDraft(`{"title": "t", "content": "<p>x</p>", "tags": ["a"], "sources": null}`)
	require.NoError(t, err)
	assert.Empty(t, a.Sources)
}

func TestNormalizeBody(t *testing.T) {
	body, err := normalizeBody("refine", "```html\n<h2>제목</h2><p>본문</p>\n```")
	require.NoError(t, err)
	assert.Equal(t, "<h2>제목</h2><p>본문</p>", body)
}

func TestNormalizeBody_MarkdownFallback(t *testing.T) {
	body, err := normalizeBody("refine", "## Title\n\nSome **bold** text.\n\n![alt](https://example.com/a.png)")
	require.NoError(t, err)
	assert.Contains(t, body, "<h2>Title</h2>")
	assert.Contains(t, body, "<strong>bold</strong>")
	assert.Contains(t, body, `<img src="https://example.com/a.png" alt="alt">`)
}

func TestNormalizeBody_Rejects(t *testing.T) {
	_, err := normalizeBody("translate", "")
	assert.ErrorIs(t, err, ErrSchema)

	_, err = normalizeBody("translate", "<p><strong>x</p>")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "<p>x</p>", stripFences("```html\n<p>x</p>\n```"))
	assert.Equal(t, "<p>x</p>", stripFences("  <p>x</p>\n"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}```"))
}
