package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/report"
)

// HTTP is a Store that delegates to a remote moderation API.
type HTTP struct {
	url string
	key string

	client *http.Client
	log    *slog.Logger
}

// NewHTTP returns a store for the moderation API at url, authorised with key.
func NewHTTP(log *slog.Logger, url, key string) *HTTP {
	return &HTTP{
		url:    strings.TrimSuffix(url, "/"),
		key:    key,
		client: &http.Client{Timeout: requestTimeout},
		log:    log,
	}
}

const (
	maxRetries     = 3
	retryDelay     = 300 * time.Millisecond
	requestTimeout = 5 * time.Second
)

// Close ...
func (s *HTTP) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Execute ...
func (s *HTTP) Execute(ctx context.Context, r punishment.Record) (string, error) {
	var resp IDResponse
	if _, err := s.do(ctx, http.MethodPost, "/punishments", punishmentModel(r), &resp); err != nil {
		return "", fmt.Errorf("failed to add punishment: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("failed to add punishment: no id returned")
	}
	return resp.ID, nil
}

// LogPlayerInfo ...
func (s *HTTP) LogPlayerInfo(ctx context.Context, id string, target uuid.UUID, ip string) error {
	_, err := s.do(ctx, http.MethodPost, "/punishments/"+url.PathEscape(id)+"/player-info", PlayerInfoModel{Target: target, IP: ip}, nil)
	return err
}

// AddActiveWarning ...
func (s *HTTP) AddActiveWarning(ctx context.Context, w punishment.ActiveWarning) error {
	_, err := s.do(ctx, http.MethodPost, "/warnings", WarningModel{
		Target:       w.Target,
		PunishmentID: w.PunishmentID,
		Level:        w.Level,
		EndTime:      w.EndTime,
	}, nil)
	return err
}

// LatestActiveWarning ...
func (s *HTTP) LatestActiveWarning(ctx context.Context, target uuid.UUID) (punishment.ActiveWarning, bool, error) {
	var m WarningModel
	found, err := s.do(ctx, http.MethodGet, "/warnings/"+target.String()+"/latest", nil, &m)
	if err != nil || !found {
		return punishment.ActiveWarning{}, false, err
	}
	return punishment.ActiveWarning{Target: target, PunishmentID: m.PunishmentID, Level: m.Level, EndTime: m.EndTime}, true, nil
}

// ExpireWarnings ...
func (s *HTTP) ExpireWarnings(ctx context.Context, now time.Time) ([]punishment.ExpiredWarning, error) {
	var models []WarningModel
	if _, err := s.do(ctx, http.MethodPost, "/warnings/expire", ExpireRequest{Now: now.UnixMilli()}, &models); err != nil {
		return nil, err
	}
	expired := make([]punishment.ExpiredWarning, 0, len(models))
	for _, m := range models {
		expired = append(expired, punishment.ExpiredWarning{
			ActiveWarning: punishment.ActiveWarning{Target: m.Target, PunishmentID: m.PunishmentID, Level: m.Level, EndTime: m.EndTime},
			TargetName:    m.TargetName,
		})
	}
	return expired, nil
}

// LastKnownIP ...
func (s *HTTP) LastKnownIP(ctx context.Context, target uuid.UUID) (string, bool, error) {
	var resp IPResponse
	found, err := s.do(ctx, http.MethodGet, "/players/"+target.String()+"/ip", nil, &resp)
	if err != nil || !found {
		return "", false, err
	}
	return resp.IP, resp.IP != "", nil
}

// ActivePunishments ...
func (s *HTTP) ActivePunishments(ctx context.Context, target uuid.UUID, now time.Time) ([]punishment.Record, error) {
	var models []PunishmentModel
	q := url.Values{"target": {target.String()}, "now": {strconv.FormatInt(now.UnixMilli(), 10)}}
	if _, err := s.do(ctx, http.MethodGet, "/punishments?"+q.Encode(), nil, &models); err != nil {
		return nil, err
	}
	recs := make([]punishment.Record, 0, len(models))
	for _, m := range models {
		r, ok := m.Record()
		if !ok {
			s.log.Warn("skipping punishment of unknown kind", "id", m.ID, "kind", m.Kind)
			continue
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// Revoke ...
func (s *HTTP) Revoke(ctx context.Context, target uuid.UUID, k punishment.Kind, actor string, at time.Time) error {
	_, err := s.do(ctx, http.MethodPost, "/punishments/revoke", RevokeModel{
		Target: target,
		Kind:   k.String(),
		Actor:  actor,
		At:     at.UnixMilli(),
	}, nil)
	return err
}

// CreateReport ...
func (s *HTTP) CreateReport(ctx context.Context, r report.Record) (string, error) {
	var resp IDResponse
	if _, err := s.do(ctx, http.MethodPost, "/reports", reportModel(r), &resp); err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("failed to create report: no id returned")
	}
	return resp.ID, nil
}

// RecordPlayer ...
func (s *HTTP) RecordPlayer(ctx context.Context, p game.Profile, ip string) error {
	_, err := s.do(ctx, http.MethodPost, "/players", PlayerModel{UUID: p.UUID, Name: p.Name, IP: ip}, nil)
	return err
}

// PlayerByName ...
func (s *HTTP) PlayerByName(ctx context.Context, name string) (game.Profile, bool, error) {
	var m PlayerModel
	found, err := s.do(ctx, http.MethodGet, "/players?"+url.Values{"name": {name}}.Encode(), nil, &m)
	if err != nil || !found {
		return game.Profile{}, false, err
	}
	return game.Profile{UUID: m.UUID, Name: m.Name}, true, nil
}

// do sends a request to the API, retrying temporary failures with an exponential backoff. The body is
// encoded as JSON if non-nil and the response is decoded into out if non-nil. A 404 response is not an
// error but returns false.
func (s *HTTP) do(ctx context.Context, method, path string, body, out any) (bool, error) {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return false, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var found bool
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, method, s.url+path, bytes.NewReader(raw))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("authorization", s.key)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			err = fmt.Errorf("request failed: %w", err)
			if isTemporaryError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			found = false
			return nil
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		case resp.StatusCode >= http.StatusMultipleChoices:
			msg, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg))))
		}
		found = true
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(retryDelay),
		backoff.WithMaxInterval(2*time.Second),
	), maxRetries), ctx)
	err := backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		s.log.Debug("retrying moderation API request", "method", method, "path", path, "error", err, "next", next)
	})
	return found, err
}

// isTemporaryError checks if an error is temporary and can be retried.
func isTemporaryError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
