package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/logger"
	"github.com/balkashynov/wroklog/internal/summary"
)

func (s *Server) handleQuota(c *gin.Context) {
	decision, err := s.deps.Quota.Remaining(c.Request.Context(), owner(c), s.deps.Quota.CurrentMonth())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, decision)
}

// sseWriter starts the event stream lazily so failures before the first
// chunk can still be reported as a JSON error.
type sseWriter struct {
	c       *gin.Context
	started bool
}

func (w *sseWriter) start() {
	if w.started {
		return
	}
	w.started = true
	h := w.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.c.Writer.WriteHeader(http.StatusOK)
}

func (w *sseWriter) event(v interface{}) error {
	w.start()
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.c.Writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}

func (w *sseWriter) done() {
	w.start()
	fmt.Fprint(w.c.Writer, "data: [DONE]\n\n")
	w.c.Writer.Flush()
}

func (s *Server) handleSummary(c *gin.Context) {
	if s.deps.Summary == nil {
		respondError(c, summary.ErrNotConfigured)
		return
	}
	var req summary.Request
	if !bindOptional(c, &req) {
		return
	}

	w := &sseWriter{c: c}
	err := s.deps.Summary.Summarize(c.Request.Context(), owner(c), req, func(chunk string) error {
		return w.event(gin.H{"text": chunk})
	})
	if err != nil && !w.started {
		respondError(c, err)
		return
	}
	if err != nil {
		logger.Warn("summary stream aborted", "owner", owner(c), "error", err)
		w.event(gin.H{"error": gin.H{"code": apperr.CodeOf(err), "message": "summary generation failed"}})
	}
	w.done()
}
