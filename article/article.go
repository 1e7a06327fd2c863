// Package article holds the article under edit and the conversation that
// accompanies it.
package article

import (
	"errors"
	"time"
)

var (
	ErrNoArticle     = errors.New("no article has been drafted yet")
	ErrArticleExists = errors.New("article already drafted")
	ErrEmptyTitle    = errors.New("article title is empty")
	ErrEmptyBody     = errors.New("article body is empty")
)

// Source is one citation attached to the article at draft time.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Article is the single document under edit. Only Body changes after the
// draft; Title, Tags and Sources are fixed once set.
type Article struct {
	Title   string   `json:"title"`
	Body    string   `json:"content"`
	Tags    []string `json:"tags"`
	Sources []Source `json:"sources"`
}

// Clone returns a copy that shares no slices with a.
func (a Article) Clone() Article {
	out := a
	out.Tags = append([]string(nil), a.Tags...)
	out.Sources = append([]Source(nil), a.Sources...)
	return out
}

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// EntryKind flags how a presentation should render an entry.
type EntryKind string

const (
	KindMessage EntryKind = "message"
	KindWarning EntryKind = "warning"
	KindError   EntryKind = "error"
)

// Entry is one message in the conversation log. Entries are never modified
// once appended.
type Entry struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Kind      EntryKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}
