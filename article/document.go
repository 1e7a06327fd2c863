package article

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Document holds the current Article and its conversation log. Reads are safe
// from any goroutine; the revision orchestrator is the only writer.
type Document struct {
	mu      sync.RWMutex
	article *Article
	entries []Entry
	now     func() time.Time
}

func NewDocument() *Document {
	return &Document{now: time.Now}
}

// SetArticle installs the drafted article. It can only be called once.
func (d *Document) SetArticle(a Article) error {
	if strings.TrimSpace(a.Title) == "" {
		return ErrEmptyTitle
	}
	if err := checkBody(a.Body); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.article != nil {
		return ErrArticleExists
	}
	cp := a.Clone()
	d.article = &cp
	return nil
}

// ReplaceBody swaps the body in full. The previous body is kept when the new
// one is empty or malformed.
func (d *Document) ReplaceBody(body string) error {
	if err := checkBody(body); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.article == nil {
		return ErrNoArticle
	}
	d.article.Body = body
	return nil
}

// AppendEntry stamps e with the current time when unset and appends it.
func (d *Document) AppendEntry(e Entry) Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = d.now()
	}
	if e.Kind == "" {
		e.Kind = KindMessage
	}
	d.entries = append(d.entries, e)
	return e
}

// Article returns a snapshot of the current article.
func (d *Document) Article() (Article, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.article == nil {
		return Article{}, false
	}
	return d.article.Clone(), true
}

// Entries returns a copy of the conversation log in append order.
func (d *Document) Entries() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Entry(nil), d.entries...)
}

func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

func checkBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if err := CheckMarkup(body); err != nil {
		return fmt.Errorf("body: %w", err)
	}
	return nil
}
