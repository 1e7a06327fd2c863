// Package revision sequences draft, refine and translate calls against a
// single article and keeps its conversation log.
package revision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"news_blog_gen/article"
	"news_blog_gen/generator"
)

type State string

const (
	StateIdle              State = "idle"
	StateAwaitingDraft     State = "awaiting_draft"
	StateAwaitingRefine    State = "awaiting_refine"
	StateAwaitingTranslate State = "awaiting_translate"
)

// Gateway is the external generation capability. *generator.Agent satisfies it.
type Gateway interface {
	Draft(ctx context.Context, brief generator.Brief) (article.Article, error)
	Refine(ctx context.Context, body, instruction string) (string, error)
	Translate(ctx context.Context, body, language string) (string, error)
}

var (
	ErrBusy             = errors.New("another revision is still in flight")
	ErrNoArticle        = article.ErrNoArticle
	ErrArticleExists    = article.ErrArticleExists
	ErrEmptyInstruction = errors.New("instruction is empty")
	ErrEmptyLanguage    = errors.New("target language is empty")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrCancelled        = errors.New("revision cancelled")
	ErrClosed           = errors.New("editor session closed")
)

const (
	msgDrafted         = "I've drafted the post based on your keywords. What would you like to improve?"
	msgRefined         = "I've updated the draft based on your feedback."
	msgRefineFailed    = "Sorry, I encountered an error updating the draft."
	msgTranslating     = "Translating content to %s..."
	msgTranslated      = "Translation to %s complete."
	msgTranslateFailed = "Translation failed."
	msgCancelled       = "Request cancelled. The draft was left unchanged."
	msgUndone          = "Reverted the last change."
)

// MediaLossWarning reports embedded media that disappeared during a refine or
// translate. It never blocks the edit.
type MediaLossWarning struct {
	Missing []string `json:"missing"`
}

func (w MediaLossWarning) Message() string {
	return fmt.Sprintf("Warning: %d image(s) from the previous version are missing: %s",
		len(w.Missing), strings.Join(w.Missing, ", "))
}

// Result is the outcome of a refine or translate.
type Result struct {
	Body    string            `json:"body"`
	Warning *MediaLossWarning `json:"warning,omitempty"`
}

// Snapshot is a read-only view of an orchestrator for presentations.
type Snapshot struct {
	State        State            `json:"state"`
	Article      *article.Article `json:"article,omitempty"`
	Conversation []article.Entry  `json:"conversation"`
	CanUndo      bool             `json:"can_undo"`
}

// Orchestrator owns one article and allows at most one gateway call in
// flight. A submission made while a call is outstanding is rejected with
// ErrBusy, never queued.
type Orchestrator struct {
	gw            Gateway
	doc           *article.Document
	events        *broker
	log           logrus.FieldLogger
	progressEvery time.Duration

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	cancelled bool
	settled   bool
	closed    bool
	previous  *string
}

type Option func(*Orchestrator)

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithProgressInterval sets the tick of draft progress events. Zero disables them.
func WithProgressInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.progressEvery = d }
}

func New(gw Gateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gw:            gw,
		doc:           article.NewDocument(),
		events:        newBroker(),
		log:           logrus.StandardLogger(),
		progressEvery: 800 * time.Millisecond,
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.WithField("component", "revision")
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Document exposes the content model for reading.
func (o *Orchestrator) Document() *article.Document { return o.doc }

func (o *Orchestrator) CanUndo() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.previous != nil
}

// Snapshot reads state and document under one lock, so a settled result is
// never paired with the body it replaced.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{State: o.state, CanUndo: o.previous != nil}
	if a, ok := o.doc.Article(); ok {
		s.Article = &a
	}
	s.Conversation = o.doc.Entries()
	if s.Conversation == nil {
		s.Conversation = []article.Entry{}
	}
	return s
}

// Subscribe returns a stream of state, progress and entry events and a func
// that ends the subscription.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	return o.events.subscribe()
}

// SubmitConfig drafts the article. On failure the conversation is left
// untouched and the same brief may be submitted again.
func (o *Orchestrator) SubmitConfig(ctx context.Context, brief generator.Brief) (article.Article, error) {
	if err := brief.Validate(); err != nil {
		return article.Article{}, err
	}
	callCtx, err := o.begin(ctx, StateAwaitingDraft, false)
	if err != nil {
		return article.Article{}, err
	}
	defer o.end()

	log := o.log.WithField("op", "draft")
	stop := o.startProgress(brief.Keywords)
	drafted, err := o.gw.Draft(callCtx, brief)
	stop()

	var setErr error
	cancelled, closed := o.settle(func() {
		if err == nil {
			setErr = o.doc.SetArticle(drafted)
		}
	})
	switch {
	case closed:
		return article.Article{}, ErrClosed
	case cancelled || errors.Is(err, context.Canceled):
		log.Info("draft cancelled")
		return article.Article{}, ErrCancelled
	case err != nil:
		log.WithError(err).WithField("reason", generator.ReasonOf(err)).Error("draft failed")
		return article.Article{}, err
	}

	if setErr != nil {
		err = &generator.GenerationError{Op: "draft", Reason: generator.ReasonSchema, Err: setErr}
		log.WithError(err).Error("draft rejected")
		return article.Article{}, err
	}
	o.events.publish(Event{Type: EventProgress, Percent: 100, Message: "Draft ready"})
	o.appendEntry(article.SpeakerAssistant, msgDrafted, article.KindMessage)
	log.WithField("title", drafted.Title).Info("draft ready")

	a, _ := o.doc.Article()
	return a, nil
}

// SubmitInstruction asks the gateway to rewrite the body according to text.
// The instruction is logged before the call starts.
func (o *Orchestrator) SubmitInstruction(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyInstruction
	}
	callCtx, err := o.begin(ctx, StateAwaitingRefine, true)
	if err != nil {
		return Result{}, err
	}
	defer o.end()

	o.appendEntry(article.SpeakerUser, text, article.KindMessage)
	before := o.body()
	after, err := o.gw.Refine(callCtx, before, text)
	return o.apply("refine", msgRefined, msgRefineFailed, before, after, err)
}

// SubmitTranslation replaces the body with its translation into language.
func (o *Orchestrator) SubmitTranslation(ctx context.Context, language string) (Result, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return Result{}, ErrEmptyLanguage
	}
	callCtx, err := o.begin(ctx, StateAwaitingTranslate, true)
	if err != nil {
		return Result{}, err
	}
	defer o.end()

	o.appendEntry(article.SpeakerAssistant, fmt.Sprintf(msgTranslating, language), article.KindMessage)
	before := o.body()
	after, err := o.gw.Translate(callCtx, before, language)
	return o.apply("translate", fmt.Sprintf(msgTranslated, language), msgTranslateFailed, before, after, err)
}

// Undo restores the body as it was before the last successful edit. Only one
// step is kept.
func (o *Orchestrator) Undo() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.closed:
		return ErrClosed
	case o.state != StateIdle:
		return ErrBusy
	case o.previous == nil:
		return ErrNothingToUndo
	}
	if err := o.doc.ReplaceBody(*o.previous); err != nil {
		return err
	}
	o.previous = nil
	o.appendEntry(article.SpeakerAssistant, msgUndone, article.KindMessage)
	o.log.WithField("op", "undo").Info("body reverted")
	return nil
}

// Cancel abandons the in-flight call, if any. Its result is discarded even if
// the gateway still answers.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateIdle || o.cancel == nil || o.settled {
		return false
	}
	o.cancelled = true
	o.cancel()
	return true
}

// Close ends the session: the in-flight call is cancelled, its result is
// never applied, and every later submission fails with ErrClosed.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
	o.events.close()
}

func (o *Orchestrator) begin(ctx context.Context, next State, needArticle bool) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrClosed
	}
	if o.state != StateIdle {
		return nil, ErrBusy
	}
	_, has := o.doc.Article()
	if needArticle && !has {
		return nil, ErrNoArticle
	}
	if !needArticle && has {
		return nil, ErrArticleExists
	}

	callCtx, cancel := context.WithCancel(ctx)
	o.state = next
	o.cancel = cancel
	o.cancelled = false
	o.settled = false
	o.events.publish(Event{Type: EventState, State: next})
	return callCtx, nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state = StateIdle
	o.mu.Unlock()
	o.events.publish(Event{Type: EventState, State: StateIdle})
}

// settle decides whether the finished call's result is kept. If neither Cancel
// nor Close got there first, write runs inside the same critical section and
// later Cancel calls report false.
func (o *Orchestrator) settle(write func()) (cancelled, closed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.cancelled {
		return o.cancelled, o.closed
	}
	o.settled = true
	if write != nil {
		write()
	}
	return false, false
}

// apply settles a refine or translate. The body only changes on success;
// lost media is reported before the success entry.
func (o *Orchestrator) apply(op, okMsg, failMsg, before, after string, err error) (Result, error) {
	log := o.log.WithField("op", op)

	var missing []string
	cancelled, closed := o.settle(func() {
		if err != nil {
			return
		}
		if rerr := o.doc.ReplaceBody(after); rerr != nil {
			err = &generator.GenerationError{Op: op, Reason: generator.ReasonSchema, Err: rerr}
			return
		}
		o.previous = &before
		// 图片丢失提示必须排在成功消息之前
		if missing = article.MissingRefs(article.MediaRefs(before), article.MediaRefs(after)); len(missing) > 0 {
			o.appendEntry(article.SpeakerAssistant, MediaLossWarning{Missing: missing}.Message(), article.KindWarning)
		}
		o.appendEntry(article.SpeakerAssistant, okMsg, article.KindMessage)
	})
	if closed {
		log.Info("result discarded, session closed")
		return Result{}, ErrClosed
	}
	if cancelled || errors.Is(err, context.Canceled) {
		log.Info("revision cancelled")
		o.appendEntry(article.SpeakerAssistant, msgCancelled, article.KindError)
		return Result{Body: before}, ErrCancelled
	}

	if err != nil {
		log.WithError(err).WithField("reason", generator.ReasonOf(err)).Error("revision failed")
		o.appendEntry(article.SpeakerAssistant, failMsg, article.KindError)
		return Result{Body: before}, err
	}

	res := Result{Body: after}
	if len(missing) > 0 {
		res.Warning = &MediaLossWarning{Missing: missing}
		log.WithField("missing_media", missing).Warn("media references lost")
	}
	return res, nil
}

func (o *Orchestrator) appendEntry(speaker article.Speaker, text string, kind article.EntryKind) {
	e := o.doc.AppendEntry(article.Entry{Speaker: speaker, Text: text, Kind: kind})
	o.events.publish(Event{Type: EventEntry, Entry: &e})
}

func (o *Orchestrator) body() string {
	a, _ := o.doc.Article()
	return a.Body
}

// startProgress publishes simulated draft stages until the returned func is
// called. The func waits for the ticker goroutine to exit.
func (o *Orchestrator) startProgress(keywords string) func() {
	if o.progressEvery <= 0 {
		return func() {}
	}
	stages := []Event{
		{Type: EventProgress, Percent: 10, Message: "Connecting to news sources..."},
		{Type: EventProgress, Percent: 30, Message: fmt.Sprintf("Searching for %q...", keywords)},
		{Type: EventProgress, Percent: 50, Message: "Extracting multimedia content..."},
		{Type: EventProgress, Percent: 70, Message: "Synthesizing AI draft..."},
	}

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(o.progressEvery)
		defer ticker.Stop()
		for _, ev := range stages {
			select {
			case <-quit:
				return
			case <-ticker.C:
				o.events.publish(ev)
			}
		}
	}()
	return func() {
		close(quit)
		<-done
	}
}
