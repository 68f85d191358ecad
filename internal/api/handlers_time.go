package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/display"
	"github.com/balkashynov/wroklog/internal/models"
	"github.com/balkashynov/wroklog/internal/session"
)

type startRequest struct {
	DeviceID string `json:"device_id"`
}

type sessionRef struct {
	SessionID string `json:"session_id"`
}

type manualRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	DeviceID  string    `json:"device_id"`
}

type scheduleRequest struct {
	SessionID string    `json:"session_id" binding:"required"`
	FireAt    time.Time `json:"fire_at" binding:"required"`
}

type activeResponse struct {
	Session        *models.Session `json:"session"`
	ServerTime     time.Time       `json:"server_time"`
	ElapsedSeconds int64           `json:"elapsed_seconds"`
}

// bindOptional decodes a JSON body when one was sent.
func bindOptional(c *gin.Context, v interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, apperr.With(apperr.ErrInvalidInput, "invalid request body", err))
		return false
	}
	return true
}

func bindRequired(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, apperr.With(apperr.ErrInvalidInput, "invalid request body", err))
		return false
	}
	return true
}

func (s *Server) handleStart(c *gin.Context) {
	var req startRequest
	if !bindOptional(c, &req) {
		return
	}
	sess, err := s.deps.Sessions.Start(c.Request.Context(), owner(c), req.DeviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, sess)
}

// sessionOrActive resolves an explicit session id, falling back to the
// owner's active session.
func (s *Server) sessionOrActive(c *gin.Context, id string) (string, bool) {
	if id != "" {
		return id, true
	}
	active, err := s.deps.Sessions.GetActive(c.Request.Context(), owner(c))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	if active == nil {
		respondError(c, apperr.ErrSessionNotFound)
		return "", false
	}
	return active.ID, true
}

func (s *Server) handleStop(c *gin.Context) {
	var req sessionRef
	if !bindOptional(c, &req) {
		return
	}
	id, ok := s.sessionOrActive(c, req.SessionID)
	if !ok {
		return
	}
	sess, err := s.deps.Sessions.Stop(c.Request.Context(), owner(c), id, s.deps.Sessions.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sess)
}

func (s *Server) handleCancel(c *gin.Context) {
	var req sessionRef
	if !bindOptional(c, &req) {
		return
	}
	id, ok := s.sessionOrActive(c, req.SessionID)
	if !ok {
		return
	}
	sess, err := s.deps.Sessions.Cancel(c.Request.Context(), owner(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sess)
}

func (s *Server) handleActive(c *gin.Context) {
	sess, err := s.deps.Sessions.GetActive(c.Request.Context(), owner(c))
	if err != nil {
		respondError(c, err)
		return
	}
	now := s.deps.Sessions.Now()
	resp := activeResponse{Session: sess, ServerTime: now}
	if sess != nil {
		resp.ElapsedSeconds = int64(display.Elapsed(sess.StartTime, now) / time.Second)
	}
	respond(c, http.StatusOK, resp)
}

func (s *Server) handleListSessions(c *gin.Context) {
	page, perPage, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := s.deps.Sessions.List(c.Request.Context(), owner(c), session.ListParams{
		Status:   c.Query("status"),
		FromDate: c.Query("from_date"),
		ToDate:   c.Query("to_date"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, result.Sessions, Meta{Page: result.Page, PerPage: result.PerPage, Total: result.Total})
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.deps.Sessions.Get(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sess)
}

func (s *Server) handleManual(c *gin.Context) {
	var req manualRequest
	if !bindRequired(c, &req) {
		return
	}
	sess, err := s.deps.Sessions.CreateManual(c.Request.Context(), owner(c), session.ManualInput{
		Start:    req.StartTime,
		End:      req.EndTime,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, sess)
}

func (s *Server) handleArm(c *gin.Context) {
	var req scheduleRequest
	if !bindRequired(c, &req) {
		return
	}
	sess, err := s.deps.Scheduler.Arm(c.Request.Context(), owner(c), req.SessionID, req.FireAt)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sess)
}

func (s *Server) handleGetSchedule(c *gin.Context) {
	row, err := s.deps.Scheduler.Schedule(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, row)
}

func (s *Server) handleUnschedule(c *gin.Context) {
	if err := s.deps.Scheduler.Cancel(c.Request.Context(), owner(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"session_id": c.Param("id"), "cancelled": true})
}

func pageParams(c *gin.Context) (int, int, bool) {
	page, err := intQuery(c, "page")
	if err != nil {
		respondError(c, err)
		return 0, 0, false
	}
	perPage, err := intQuery(c, "per_page")
	if err != nil {
		respondError(c, err)
		return 0, 0, false
	}
	return page, perPage, true
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.With(apperr.ErrInvalidInput, fmt.Sprintf("%s must be a non-negative integer", name), nil)
	}
	return n, nil
}
