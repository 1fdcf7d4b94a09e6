// Package api implements SparkQ's HTTP surface (spec §6.1): a plain
// net/http 1.22 method+pattern ServeMux, matching the teacher's own
// http.Handle("METHOD /path", ...) registration style rather than
// introducing a third-party router the corpus never reaches for.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/config"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/httplog"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/scheduler"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

// Server wires the store and scheduler to HTTP handlers.
type Server struct {
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Resolver  *config.Resolver
	Version   string
	BuildID   string

	mux     *http.ServeMux
	limiter *rateLimiter
	started time.Time
}

// New builds a Server with every route registered (spec §6.1, plus the
// metrics/static additions from SPEC_FULL.md §4.4).
func New(s *store.Store, sch *scheduler.Scheduler, resolver *config.Resolver, version, buildID string, assets http.FileSystem) *Server {
	srv := &Server{
		Store:     s,
		Scheduler: sch,
		Resolver:  resolver,
		Version:   version,
		BuildID:   buildID,
		mux:       http.NewServeMux(),
		limiter:   newRateLimiter(resolver.File.Server.RateLimitPerMinute),
		started:   time.Now(),
	}
	srv.routes(assets)
	return srv
}

// ServeHTTP satisfies http.Handler; callers should route through this,
// not srv.mux directly, so rate limiting always applies.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.limiter.middleware(s.mux).ServeHTTP(w, r)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, httplog.Middleware(pattern, h))
}

func (s *Server) routes(assets http.FileSystem) {
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /api/version", s.handleVersion)
	s.handle("GET /api/stats", s.handleStats)
	s.handle("GET /api/metrics", s.handleMetrics)

	s.handle("POST /api/sessions", s.handleCreateSession)
	s.handle("GET /api/sessions", s.handleListSessions)
	s.handle("GET /api/sessions/{id}", s.handleGetSession)
	s.handle("PUT /api/sessions/{id}", s.handleUpdateSession)
	s.handle("PUT /api/sessions/{id}/end", s.handleEndSession)
	s.handle("DELETE /api/sessions/{id}", s.handleDeleteSession)

	s.handle("POST /api/queues", s.handleCreateQueue)
	s.handle("GET /api/queues", s.handleListQueues)
	s.handle("GET /api/queues/{id}", s.handleGetQueue)
	s.handle("PUT /api/queues/{id}", s.handleUpdateQueue)
	s.handle("PUT /api/queues/{id}/end", s.handleEndQueue)
	s.handle("PUT /api/queues/{id}/archive", s.handleArchiveQueue)
	s.handle("PUT /api/queues/{id}/unarchive", s.handleUnarchiveQueue)
	s.handle("DELETE /api/queues/{id}", s.handleDeleteQueue)
	s.handle("POST /api/queues/{id}/claim", s.handleClaimFromQueue)

	s.handle("POST /api/tasks", s.handleEnqueueTask)
	s.handle("GET /api/tasks", s.handleListTasks)
	s.handle("GET /api/tasks/{id}", s.handleGetTask)
	s.handle("POST /api/tasks/{id}/claim", s.handleClaimTask)
	s.handle("POST /api/tasks/{id}/complete", s.handleCompleteTask)
	s.handle("POST /api/tasks/{id}/fail", s.handleFailTask)
	s.handle("POST /api/tasks/{id}/requeue", s.handleRequeueTask)
	s.handle("DELETE /api/tasks/{id}", s.handleDeleteTask)

	s.handle("GET /api/task_classes", s.handleListTaskClasses)
	s.handle("PUT /api/task_classes/{name}", s.handleUpsertTaskClass)
	s.handle("DELETE /api/task_classes/{name}", s.handleDeleteTaskClass)

	s.handle("GET /api/tools", s.handleListTools)
	s.handle("PUT /api/tools/{name}", s.handleUpsertTool)
	s.handle("DELETE /api/tools/{name}", s.handleDeleteTool)

	s.handle("GET /api/config/{namespace}", s.handleListConfig)
	s.handle("PUT /api/config/{namespace}/{key}", s.handleSetConfig)

	if assets != nil {
		fileServer := http.FileServer(assets)
		s.mux.Handle("GET /ui/", http.StripPrefix("/ui/", fileServer))
		s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/ui/", http.StatusFound)
		})
	}
}

// Shutdown stops the rate limiter's background cleanup loop. The HTTP
// server itself is owned and shut down by cmd/sparkqd.
func (s *Server) Shutdown(ctx context.Context) {
	s.limiter.stop()
}
