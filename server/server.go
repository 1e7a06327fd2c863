package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"news_blog_gen/revision"
)

type Options struct {
	AllowedOrigins   []string
	RequestTimeout   time.Duration
	ProgressInterval time.Duration
}

type Server struct {
	gw    revision.Gateway
	opts  Options
	store *sessionStore
	log   logrus.FieldLogger
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*revision.Orchestrator
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*revision.Orchestrator)}
}

func (s *sessionStore) set(id string, sess *revision.Orchestrator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *sessionStore) get(id string) (*revision.Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionStore) remove(id string) (*revision.Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	return sess, ok
}

func (s *sessionStore) drain() []*revision.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*revision.Orchestrator, 0, len(s.sessions))
	for id, sess := range s.sessions {
		out = append(out, sess)
		delete(s.sessions, id)
	}
	return out
}

func New(gw revision.Gateway, opts Options, log logrus.FieldLogger) (*Server, error) {
	if gw == nil {
		return nil, errors.New("generation gateway required")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 120 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		gw:    gw,
		opts:  opts,
		store: newStore(),
		log:   log.WithField("component", "server"),
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(logMiddleware(s.log))

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Post("/sessions", s.handleSessionCreate)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionGet)
			r.Delete("/", s.handleSessionDelete)
			r.Post("/draft", s.handleDraft)
			r.Post("/instructions", s.handleInstruction)
			r.Post("/translations", s.handleTranslation)
			r.Post("/undo", s.handleUndo)
			r.Post("/cancel", s.handleCancel)
			r.Get("/events", s.handleEvents)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

// Close ends every open session, cancelling calls still in flight.
func (s *Server) Close() {
	for _, sess := range s.store.drain() {
		sess.Close()
	}
}

func (s *Server) newSession() (string, *revision.Orchestrator) {
	id := uuid.NewString()
	sess := revision.New(s.gw,
		revision.WithLogger(s.log.WithField("session_id", id)),
		revision.WithProgressInterval(s.opts.ProgressInterval),
	)
	s.store.set(id, sess)
	return id, sess
}

func logMiddleware(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  chimiddleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
