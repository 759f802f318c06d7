package main

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fsgate/fsgate/pkg/gateway"
)

// Server wires the gateway and the audit store into the HTTP surface.
type Server struct {
	gw     *gateway.Gateway
	audit  *AuditStore
	logger zerolog.Logger
}

type writeTextRequest struct {
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"`
}

type writeBinaryRequest struct {
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"` // base64
}

func (s *Server) handleWriteText(c *gin.Context) {
	var req writeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), s.logger)
		return
	}

	path, err := s.gw.WriteText(c.Request.Context(), req.Path, req.Content)
	if err != nil {
		respondGatewayError(c, err, s.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (s *Server) handleWriteBinary(c *gin.Context) {
	var req writeBinaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), s.logger)
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		respondError(c, http.StatusBadRequest, "content must be base64 encoded", s.logger)
		return
	}

	path, err := s.gw.WriteBinary(c.Request.Context(), req.Path, content)
	if err != nil {
		respondGatewayError(c, err, s.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (s *Server) handleReadText(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		respondError(c, http.StatusBadRequest, "path query parameter is required", s.logger)
		return
	}

	content, err := s.gw.ReadText(c.Request.Context(), path)
	if err != nil {
		respondGatewayError(c, err, s.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path, "content": content})
}

func (s *Server) handleAllowedDirs(c *gin.Context) {
	dirs := s.gw.AllowedDirs()
	if dirs == nil {
		dirs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"dirs": dirs})
}

func (s *Server) handleAudit(c *gin.Context) {
	if s.audit == nil {
		respondError(c, http.StatusNotFound, "audit trail is disabled", s.logger)
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "limit must be an integer", s.logger)
			return
		}
		limit = parsed
	}

	records, err := s.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not load audit records", s.logger)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "healthy",
		"limiter_operations": s.gw.LimiterStats().Operations,
	})
}

func (s *Server) routes(r *gin.Engine) {
	r.POST("/v1/files/text", s.handleWriteText)
	r.POST("/v1/files/binary", s.handleWriteBinary)
	r.GET("/v1/files/text", s.handleReadText)
	r.GET("/v1/dirs", s.handleAllowedDirs)
	r.GET("/v1/audit", s.handleAudit)
	r.GET("/v1/health", s.handleHealth)
}
