package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"news_blog_gen/article"
	"news_blog_gen/export"
	"news_blog_gen/generator"
	"news_blog_gen/revision"
)

var validate = validator.New()

var errSessionNotFound = errors.New("session not found")

// --- Requests / responses ---

type draftReq struct {
	Keywords string `json:"keywords" validate:"required"`
	Period   string `json:"period" validate:"required"`
	Tone     string `json:"tone" validate:"required"`
	Length   string `json:"length" validate:"required"`
}

type instructionReq struct {
	Instruction string `json:"instruction" validate:"required"`
}

type translationReq struct {
	Language string `json:"language" validate:"required"`
}

type sessionResp struct {
	SessionID string `json:"session_id"`
	revision.Snapshot
	Warning *revision.MediaLossWarning `json:"warning,omitempty"`
}

type option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type optionsResp struct {
	Periods   []option        `json:"periods"`
	Tones     []option        `json:"tones"`
	Lengths   []option        `json:"lengths"`
	Languages []string        `json:"languages"`
	Formats   []export.Format `json:"formats"`
}

type errorResp struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	resp := optionsResp{Languages: generator.Languages, Formats: export.Formats}
	for _, p := range generator.Periods {
		resp.Periods = append(resp.Periods, option{Key: string(p), Label: p.Label()})
	}
	for _, t := range generator.Tones {
		resp.Tones = append(resp.Tones, option{Key: string(t), Label: t.Label()})
	}
	for _, l := range generator.Lengths {
		resp.Lengths = append(resp.Lengths, option{Key: string(l), Label: l.Label()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := s.newSession()
	s.log.WithField("session_id", id).Info("session created")
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{SessionID: id, Snapshot: sess.Snapshot()})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.store.remove(id)
	if !ok {
		s.writeError(w, errSessionNotFound)
		return
	}
	sess.Close()
	s.log.WithField("session_id", id).Info("session closed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req draftReq
	if !s.decode(w, r, &req) {
		return
	}
	brief, err := toBrief(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx, cancel := s.callContext(r)
	defer cancel()
	if _, err := sess.SubmitConfig(ctx, brief); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{SessionID: id, Snapshot: sess.Snapshot()})
}

func (s *Server) handleInstruction(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req instructionReq
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.callContext(r)
	defer cancel()
	res, err := sess.SubmitInstruction(ctx, req.Instruction)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{SessionID: id, Snapshot: sess.Snapshot(), Warning: res.Warning})
}

func (s *Server) handleTranslation(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req translationReq
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.callContext(r)
	defer cancel()
	res, err := sess.SubmitTranslation(ctx, req.Language)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{SessionID: id, Snapshot: sess.Snapshot(), Warning: res.Warning})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Undo(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{SessionID: id, Snapshot: sess.Snapshot()})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": sess.Cancel()})
}

// handleEvents streams orchestrator events as Server-Sent Events until the
// client goes away or the session is closed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, errors.New("streaming unsupported"))
		return
	}
	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	writeEvent(w, revision.Event{Type: revision.EventState, State: sess.State()})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	format := export.FormatWord
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := export.ParseFormat(q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
			return
		}
		format = f
	}
	a, ok := sess.Document().Article()
	if !ok {
		s.writeError(w, article.ErrNoArticle)
		return
	}
	data, err := export.Render(a, format)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": export.Filename(a, format),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// --- Helpers ---

func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *revision.Orchestrator, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.store.get(id)
	if !ok {
		s.writeError(w, errSessionNotFound)
		return id, nil, false
	}
	return id, sess, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return false
	}
	return true
}

func (s *Server) callContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.RequestTimeout)
}

func toBrief(req draftReq) (generator.Brief, error) {
	period, err := generator.ParsePeriod(req.Period)
	if err != nil {
		return generator.Brief{}, fmt.Errorf("%w: %v", generator.ErrInvalidBrief, err)
	}
	tone, err := generator.ParseTone(req.Tone)
	if err != nil {
		return generator.Brief{}, fmt.Errorf("%w: %v", generator.ErrInvalidBrief, err)
	}
	length, err := generator.ParseLength(req.Length)
	if err != nil {
		return generator.Brief{}, fmt.Errorf("%w: %v", generator.ErrInvalidBrief, err)
	}
	return generator.Brief{Keywords: req.Keywords, Period: period, Tone: tone, Length: length}, nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, generator.ErrInvalidBrief),
		errors.Is(err, revision.ErrEmptyInstruction),
		errors.Is(err, revision.ErrEmptyLanguage):
		return http.StatusBadRequest
	case errors.Is(err, revision.ErrBusy),
		errors.Is(err, revision.ErrArticleExists),
		errors.Is(err, revision.ErrNothingToUndo),
		errors.Is(err, revision.ErrNoArticle),
		errors.Is(err, revision.ErrCancelled):
		return http.StatusConflict
	case errors.Is(err, revision.ErrClosed):
		return http.StatusGone
	case errors.Is(err, generator.ErrService), errors.Is(err, generator.ErrSchema):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("status", status).Error("request failed")
	}
	writeJSON(w, status, errorResp{Error: err.Error(), Reason: string(generator.ReasonOf(err))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEvent(w http.ResponseWriter, ev revision.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}
