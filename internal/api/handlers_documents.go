package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/document"
	"github.com/balkashynov/wroklog/internal/models"
)

type documentRequest struct {
	DocumentID string          `json:"document_id"`
	LogDate    string          `json:"log_date"`
	SessionID  *string         `json:"session_id"`
	Title      *string         `json:"title"`
	Content    json.RawMessage `json:"content"`
}

type savedResponse struct {
	Document *models.Document `json:"document"`
	Version  int              `json:"version"`
}

func (r documentRequest) save(ownerID string) document.SaveRequest {
	return document.SaveRequest{
		OwnerID:    ownerID,
		DocumentID: r.DocumentID,
		LogDate:    r.LogDate,
		SessionID:  r.SessionID,
		Title:      r.Title,
		Content:    r.Content,
	}
}

func (s *Server) handleCreateDocument(c *gin.Context) {
	var req documentRequest
	if !bindRequired(c, &req) {
		return
	}
	req.DocumentID = ""
	s.publish(c, req, http.StatusCreated)
}

func (s *Server) handleUpdateDocument(c *gin.Context) {
	var req documentRequest
	if !bindRequired(c, &req) {
		return
	}
	req.DocumentID = c.Param("id")
	s.publish(c, req, http.StatusOK)
}

func (s *Server) publish(c *gin.Context, req documentRequest, status int) {
	res, err := s.deps.Documents.PublishResult(c.Request.Context(), req.save(owner(c)))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := savedResponse{Document: res.Document}
	if res.Version != nil {
		resp.Version = res.Version.VersionNumber
	} else if res.Document != nil {
		resp.Version = res.Document.CurrentVersion
	}
	respond(c, status, resp)
}

func (s *Server) handleAutosave(c *gin.Context) {
	var req documentRequest
	if !bindRequired(c, &req) {
		return
	}
	key, err := s.deps.Documents.Edit(c.Request.Context(), req.save(owner(c)))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"key": key, "pending": true}
	if id := s.deps.Documents.DocumentFor(key); id != "" {
		resp["document_id"] = id
	}
	respond(c, http.StatusAccepted, resp)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	page, perPage, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := s.deps.Documents.List(c.Request.Context(), owner(c), document.ListParams{
		FromDate: c.Query("from_date"),
		ToDate:   c.Query("to_date"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, result.Documents, Meta{Page: result.Page, PerPage: result.PerPage, Total: result.Total})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	view, err := s.deps.Documents.Get(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

func (s *Server) handleListVersions(c *gin.Context) {
	infos, err := s.deps.Documents.ListVersions(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, infos)
}

func (s *Server) handleGetVersion(c *gin.Context) {
	n, ok := versionParam(c)
	if !ok {
		return
	}
	version, err := s.deps.Documents.GetVersion(c.Request.Context(), owner(c), c.Param("id"), n)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, version)
}

func (s *Server) handleRestore(c *gin.Context) {
	n, ok := versionParam(c)
	if !ok {
		return
	}
	doc, err := s.deps.Documents.Restore(c.Request.Context(), owner(c), c.Param("id"), n)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, savedResponse{Document: doc, Version: doc.CurrentVersion})
}

func versionParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("version"))
	if err != nil || n < 1 {
		respondError(c, apperr.With(apperr.ErrInvalidInput, "version must be a positive integer", nil))
		return 0, false
	}
	return n, true
}

func (s *Server) handleUpload(c *gin.Context) {
	if s.deps.Media == nil {
		fail(c, http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "media storage is not configured")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperr.With(apperr.ErrInvalidInput, "multipart field \"file\" is required", err))
		return
	}
	f, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	url, err := s.deps.Media.Put(c.Request.Context(), owner(c), file.Filename, f)
	if err != nil {
		respondError(c, apperr.With(apperr.ErrInvalidInput, err.Error(), nil))
		return
	}
	respond(c, http.StatusCreated, gin.H{"url": url})
}
