package article

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `<h2>Introduction</h2>
<p>Opening paragraph.</p>
<img src="https://image.pollinations.ai/prompt/seoul%20night?width=1280&height=720&nologo=true&seed=1" alt="서울 야경" />
<h2>Global Case Studies</h2>
<ul><li>US<li>Japan</ul>
<img src="https://image.pollinations.ai/prompt/robot%20factory?seed=2" alt="로봇">
<blockquote>quote</blockquote>`

func TestMediaRefs(t *testing.T) {
	refs := MediaRefs(sampleBody)
	require.Len(t, refs, 2)
	assert.Equal(t, "https://image.pollinations.ai/prompt/seoul%20night?width=1280&height=720&nologo=true&seed=1", refs[0])
	assert.Equal(t, "https://image.pollinations.ai/prompt/robot%20factory?seed=2", refs[1])
}

func TestMediaRefs_DeduplicatesAndIgnoresEmptySrc(t *testing.T) {
	body := `<img src="a.png"><img src=" a.png "><img alt="x"><video src="b.mp4"></video><p>a.png</p>`
	assert.Equal(t, []string{"a.png", "b.mp4"}, MediaRefs(body))
}

func TestMediaRefs_Srcset(t *testing.T) {
	body := `<picture><source srcset="hero.webp 1x, hero@2x.webp 2x" type="image/webp">` +
		`<img src="hero.jpg" srcset="hero-480.jpg 480w,hero-800.jpg 800w, hero.jpg 1200w"></picture>` +
		`<img srcset="a,b.png, c.png">`
	assert.Equal(t, []string{
		"hero.webp", "hero@2x.webp",
		"hero.jpg", "hero-480.jpg", "hero-800.jpg",
		"a,b.png", "c.png",
	}, MediaRefs(body))
}

func TestMissingRefs_DroppedSrcsetCandidate(t *testing.T) {
	before := MediaRefs(`<img src="a.jpg" srcset="a-2x.jpg 2x">`)
	after := MediaRefs(`<img src="a.jpg">`)
	assert.Equal(t, []string{"a-2x.jpg"}, MissingRefs(before, after))
}

func TestMissingRefs(t *testing.T) {
	tests := []struct {
		name   string
		before []string
		after  []string
		want   []string
	}{
		{"all kept", []string{"r1", "r2", "r3"}, []string{"r1", "r2", "r3"}, nil},
		{"one dropped", []string{"r1", "r2", "r3"}, []string{"r1", "r3"}, []string{"r2"}},
		{"one added", []string{"r1", "r2", "r3"}, []string{"r1", "r2", "r3", "r4"}, nil},
		{"reordered", []string{"r1", "r2"}, []string{"r2", "r1"}, nil},
		{"all dropped", []string{"r1", "r2"}, nil, []string{"r1", "r2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MissingRefs(tt.before, tt.after))
		})
	}
}

func TestCheckMarkup(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"sample", sampleBody, true},
		{"implied paragraph end", "<p>one<p>two", true},
		{"void end tag", "<p>a<br></br>b</p>", true},
		{"self closing", `<img src="x" />`, true},
		{"unclosed div", "<div><p>text</p>", false},
		{"stray end tag", "<p>text</p></section>", false},
		{"crossed tags", "<strong><em>x</strong></em>", false},
		{"plain text", "just words", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMarkup(tt.body)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedMarkup))
		})
	}
}

func TestHasMarkup(t *testing.T) {
	assert.True(t, HasMarkup("<p>x</p>"))
	assert.True(t, HasMarkup("text <br/> more"))
	assert.False(t, HasMarkup("# Heading\n\nSome *markdown*"))
}

func TestPlainText(t *testing.T) {
	got := PlainText(`<h2>Title</h2><p>Hello <strong>world</strong>.</p><ul><li>one</li><li>two</li></ul><img src="x" alt="cat">`)
	assert.Equal(t, "Title\n\nHello world.\n\n• one\n• two\n\n[image: cat]", got)
}
