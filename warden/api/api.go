// Package api serves the moderation state of the server to other services over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smell-of-curry/warden/warden/banlist"
	"github.com/smell-of-curry/warden/warden/cache"
	"github.com/smell-of-curry/warden/warden/report"
)

// Reports lists and updates submitted reports. It is optional: stores that cannot list reports leave the
// report routes unregistered.
type Reports interface {
	Reports(ctx context.Context, st report.Status) ([]report.Record, error)
	SetReportStatus(ctx context.Context, id string, st report.Status, moderator string) error
}

// Deps holds the state served by the API.
type Deps struct {
	Cache   cache.Reader
	Bans    *banlist.List
	Reports Reports
}

// Server ...
type Server struct {
	log  *slog.Logger
	key  string
	deps Deps

	router *gin.Engine
	srv    *http.Server
}

// New returns a Server requiring the key passed in the authorization header of every request.
func New(log *slog.Logger, key string, d Deps) *Server {
	s := &Server{log: log, key: key, deps: d}
	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.authorize)
	s.router.GET("/moderation/:kind/:uuid", s.moderation)
	s.router.GET("/bans/:uuid", s.ban)
	if d.Reports != nil {
		s.router.GET("/reports", s.reports)
		s.router.POST("/reports/:id/status", s.reportStatus)
	}
	return s
}

// Handler ...
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the API on addr in the background.
func (s *Server) Start(addr string) {
	s.srv = &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("moderation API stopped", "addr", addr, "error", err)
		}
	}()
}

// Close ...
func (s *Server) Close(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// authorize ...
func (s *Server) authorize(c *gin.Context) {
	if c.GetHeader("authorization") != s.key {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

// moderation answers whether an identity is currently under a cached punishment.
func (s *Server) moderation(c *gin.Context) {
	k, ok := cache.ParseKind(strings.ToLower(c.Param("kind")))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind"})
		return
	}
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}
	until, _ := s.deps.Cache.Until(k, id)
	active := s.deps.Cache.Active(k, id)
	if !active {
		until = 0
	}
	resp := gin.H{"active": active, "until": until}
	if k == cache.Softban {
		resp["commands"] = s.deps.Cache.BlockedCommands(id)
	}
	c.JSON(http.StatusOK, resp)
}

// ban answers whether a profile or address is banned.
func (s *Server) ban(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}
	e, ok := s.deps.Bans.Lookup(id, c.Query("name"), c.Query("address"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"reason": "not banned"})
		return
	}
	c.JSON(http.StatusOK, e)
}

// reportJSON ...
type reportJSON struct {
	ID            string `json:"id"`
	RequesterName string `json:"requester_name"`
	TargetName    string `json:"target_name"`
	Kind          string `json:"kind"`
	Category      string `json:"category"`
	Reason        string `json:"reason"`
	Details       string `json:"details"`
	Snapshot      string `json:"snapshot"`
	Status        string `json:"status"`
	Moderator     string `json:"moderator,omitempty"`
	Created       int64  `json:"created"`
}

// reports lists the reports with a status, pending by default.
func (s *Server) reports(c *gin.Context) {
	st, ok := report.ParseStatus(c.DefaultQuery("status", report.StatusPending.String()))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	recs, err := s.deps.Reports.Reports(c, st)
	if err != nil {
		s.log.Error("failed to list reports", "status", st.String(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	out := make([]reportJSON, 0, len(recs))
	for _, r := range recs {
		out = append(out, reportJSON{
			ID:            r.ID,
			RequesterName: r.RequesterName,
			TargetName:    r.TargetName,
			Kind:          r.Kind.String(),
			Category:      r.Category,
			Reason:        r.Reason,
			Details:       r.Details,
			Snapshot:      r.Snapshot,
			Status:        r.Status.String(),
			Moderator:     r.Moderator,
			Created:       r.Created.UnixMilli(),
		})
	}
	c.JSON(http.StatusOK, out)
}

// statusRequest ...
type statusRequest struct {
	Status    string `json:"status" binding:"required"`
	Moderator string `json:"moderator" binding:"required"`
}

// reportStatus moves a report to a new status.
func (s *Server) reportStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := report.ParseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	if err := s.deps.Reports.SetReportStatus(c, c.Param("id"), st, req.Moderator); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
