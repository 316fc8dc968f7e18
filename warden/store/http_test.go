package store

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/report"
)

const testKey = "secret"

// newModerationAPI serves the moderation API on top of a SQLite store.
func newModerationAPI(t *testing.T, db *SQLite) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("authorization") != testKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	})
	fail := func(c *gin.Context, err error) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}

	router.POST("/punishments", func(c *gin.Context) {
		var m PunishmentModel
		if err := c.ShouldBindJSON(&m); err != nil {
			fail(c, err)
			return
		}
		r, _ := m.Record()
		id, err := db.Execute(c, r)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, IDResponse{ID: id})
	})
	router.GET("/punishments", func(c *gin.Context) {
		target, err := uuid.Parse(c.Query("target"))
		if err != nil {
			fail(c, err)
			return
		}
		now, _ := strconv.ParseInt(c.Query("now"), 10, 64)
		recs, err := db.ActivePunishments(c, target, time.UnixMilli(now))
		if err != nil {
			fail(c, err)
			return
		}
		models := make([]PunishmentModel, 0, len(recs))
		for _, r := range recs {
			models = append(models, punishmentModel(r))
		}
		c.JSON(http.StatusOK, models)
	})
	router.POST("/punishments/revoke", func(c *gin.Context) {
		var m RevokeModel
		if err := c.ShouldBindJSON(&m); err != nil {
			fail(c, err)
			return
		}
		k, _ := punishment.ParseKind(m.Kind)
		if err := db.Revoke(c, m.Target, k, m.Actor, time.UnixMilli(m.At)); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.POST("/punishments/:id/player-info", func(c *gin.Context) {
		var m PlayerInfoModel
		if err := c.ShouldBindJSON(&m); err != nil {
			fail(c, err)
			return
		}
		if err := db.LogPlayerInfo(c, c.Param("id"), m.Target, m.IP); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.POST("/warnings", func(c *gin.Context) {
		var m WarningModel
		if err := c.ShouldBindJSON(&m); err != nil {
			fail(c, err)
			return
		}
		if err := db.AddActiveWarning(c, punishment.ActiveWarning{Target: m.Target, PunishmentID: m.PunishmentID, Level: m.Level, EndTime: m.EndTime}); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/warnings/:uuid/latest", func(c *gin.Context) {
		target, err := uuid.Parse(c.Param("uuid"))
		if err != nil {
			fail(c, err)
			return
		}
		w, ok, err := db.LatestActiveWarning(c, target)
		switch {
		case err != nil:
			fail(c, err)
		case !ok:
			c.JSON(http.StatusNotFound, gin.H{"reason": "no active warning"})
		default:
			c.JSON(http.StatusOK, WarningModel{Target: w.Target, PunishmentID: w.PunishmentID, Level: w.Level, EndTime: w.EndTime})
		}
	})
	router.POST("/warnings/expire", func(c *gin.Context) {
		var req ExpireRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, err)
			return
		}
		expired, err := db.ExpireWarnings(c, time.UnixMilli(req.Now))
		if err != nil {
			fail(c, err)
			return
		}
		models := make([]WarningModel, 0, len(expired))
		for _, w := range expired {
			models = append(models, WarningModel{Target: w.Target, TargetName: w.TargetName, PunishmentID: w.PunishmentID, Level: w.Level, EndTime: w.EndTime})
		}
		c.JSON(http.StatusOK, models)
	})
	router.POST("/players", func(c *gin.Context) {
		var m PlayerModel
		if err := c.ShouldBindJSON(&m); err != nil {
			fail(c, err)
			return
		}
		if err := db.RecordPlayer(c, game.Profile{UUID: m.UUID, Name: m.Name}, m.IP); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/players", func(c *gin.Context) {
		p, ok, err := db.PlayerByName(c, c.Query("name"))
		switch {
		case err != nil:
			fail(c, err)
		case !ok:
			c.JSON(http.StatusNotFound, gin.H{"reason": "no player found"})
		default:
			c.JSON(http.StatusOK, PlayerModel{UUID: p.UUID, Name: p.Name})
		}
	})
	router.GET("/players/:uuid/ip", func(c *gin.Context) {
		target, err := uuid.Parse(c.Param("uuid"))
		if err != nil {
			fail(c, err)
			return
		}
		ip, ok, err := db.LastKnownIP(c, target)
		switch {
		case err != nil:
			fail(c, err)
		case !ok:
			c.JSON(http.StatusNotFound, gin.H{"reason": "no address known"})
		default:
			c.JSON(http.StatusOK, IPResponse{IP: ip})
		}
	})
	router.POST("/reports", func(c *gin.Context) {
		var m ReportModel
		if err := c.ShouldBindJSON(&m); err != nil {
			fail(c, err)
			return
		}
		kind, _ := report.ParseTargetKind(m.Kind)
		id, err := db.CreateReport(c, report.Record{
			Requester: m.Requester, RequesterName: m.RequesterName, Target: m.Target, TargetName: m.TargetName,
			Kind: kind, Category: m.Category, Reason: m.Reason, Details: m.Details, Snapshot: m.Snapshot,
			Created: time.UnixMilli(m.Created),
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, IDResponse{ID: id})
	})
	return router
}

func newTestHTTP(t *testing.T) (*HTTP, *SQLite) {
	db := openTestSQLite(t)
	srv := httptest.NewServer(newModerationAPI(t, db))
	t.Cleanup(srv.Close)
	s := NewHTTP(slog.Default(), srv.URL+"/", testKey)
	t.Cleanup(func() { _ = s.Close() })
	return s, db
}

func TestHTTPPunishments(t *testing.T) {
	s, db := newTestHTTP(t)
	ctx := t.Context()
	now := time.Now()
	target := uuid.New()

	rec := punishment.Record{
		Target: target, TargetName: "Steve", Kind: punishment.Softban, Reason: "alts", Actor: "Mod",
		Created: now.UnixMilli(), EndTime: now.Add(time.Hour).UnixMilli(), DurationLabel: "1h", ByIP: true,
	}
	id, err := s.Execute(ctx, rec)
	require.NoError(t, err)
	require.NoError(t, s.LogPlayerInfo(ctx, id, target, "10.0.0.4"))

	active, err := s.ActivePunishments(ctx, target, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	rec.ID = id
	assert.Equal(t, rec, active[0])

	ip, ok, err := s.LastKnownIP(ctx, target)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.4", ip)

	require.NoError(t, s.Revoke(ctx, target, punishment.Softban, "Admin", now))
	active, err = db.ActivePunishments(ctx, target, now)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestHTTPWarningsAndPlayers(t *testing.T) {
	s, _ := newTestHTTP(t)
	ctx := t.Context()
	now := time.Now()
	steve := game.Profile{UUID: uuid.New(), Name: "Steve"}

	_, ok, err := s.LatestActiveWarning(ctx, steve.UUID)
	require.NoError(t, err)
	assert.False(t, ok, "404 means no warning")

	id, err := s.Execute(ctx, punishment.Record{Target: steve.UUID, TargetName: "Steve", Kind: punishment.Warn, WarnLevel: 1, EndTime: punishment.Forever})
	require.NoError(t, err)
	require.NoError(t, s.AddActiveWarning(ctx, punishment.ActiveWarning{Target: steve.UUID, PunishmentID: id, Level: 1, EndTime: now.Add(time.Minute).UnixMilli()}))

	w, ok, err := s.LatestActiveWarning(ctx, steve.UUID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, w.Level)

	expired, err := s.ExpireWarnings(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "Steve", expired[0].TargetName)

	_, ok, err = s.PlayerByName(ctx, "steve")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.RecordPlayer(ctx, steve, "10.0.0.1"))
	p, ok, err := s.PlayerByName(ctx, "steve")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, steve, p)

	rid, err := s.CreateReport(ctx, report.Record{Requester: uuid.New(), RequesterName: "Alex", Target: steve.UUID, TargetName: "Steve", Category: "Chat", Created: now})
	require.NoError(t, err)
	assert.NotEmpty(t, rid)
}

func TestHTTPRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"0000ABCD"}`))
	}))
	t.Cleanup(srv.Close)

	s := NewHTTP(slog.Default(), srv.URL, testKey)
	id, err := s.Execute(t.Context(), punishment.Record{Kind: punishment.Kick})
	require.NoError(t, err)
	assert.Equal(t, "0000ABCD", id)
	assert.EqualValues(t, 3, calls.Load())
}

func TestHTTPPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad punishment", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	s := NewHTTP(slog.Default(), srv.URL, testKey)
	_, err := s.Execute(t.Context(), punishment.Record{Kind: punishment.Kick})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad punishment")
	assert.EqualValues(t, 1, calls.Load(), "client errors are not retried")

	_, err = NewHTTP(slog.Default(), srv.URL, "wrong").CreateReport(t.Context(), report.Record{})
	assert.Error(t, err)
}

func TestHTTPUnauthorised(t *testing.T) {
	db := openTestSQLite(t)
	srv := httptest.NewServer(newModerationAPI(t, db))
	t.Cleanup(srv.Close)

	_, err := NewHTTP(slog.Default(), srv.URL, "wrong").Execute(t.Context(), punishment.Record{Kind: punishment.Ban})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}
