package rank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/smell-of-curry/warden/warden/locale"
)

// globalService ...
var globalService *Service

// GlobalService ...
func GlobalService() *Service {
	return globalService
}

// Service fetches the external roles of players from the role API.
type Service struct {
	url string

	client *http.Client
	log    *slog.Logger
}

// NewService ...
func NewService(log *slog.Logger, url string) {
	globalService = newService(log, url)
}

// newService ...
func newService(log *slog.Logger, url string) *Service {
	return &Service{
		url: strings.TrimSuffix(url, "/"),
		client: &http.Client{
			Timeout: requestTimeout,
		},
		log: log,
	}
}

const (
	maxRetries     = 3
	retryDelay     = 1 * time.Second
	requestTimeout = 5 * time.Second
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrServer       = errors.New("server error")
)

// Enabled reports whether a role API is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.url != ""
}

// RolesOfXUID fetches the roles of the player with the XUID passed. Timeouts, rate limits and server errors
// are retried with an exponential backoff.
func (s *Service) RolesOfXUID(ctx context.Context, xuid string) ([]string, error) {
	var roles []string
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.url+"/"+url.PathEscape(xuid), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
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
		case resp.StatusCode == http.StatusOK:
			if err = json.NewDecoder(resp.Body).Decode(&roles); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to parse roles: %w", err))
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrUserNotFound)
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("server returned %d: %w", resp.StatusCode, ErrServer))
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(retryDelay),
	), maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	s.log.Debug("fetched roles", "xuid", xuid, "roles", roles)
	return roles, nil
}

// isTemporaryError ...
func isTemporaryError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RolesError translates a role error to be sent to a player.
func RolesError(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return locale.Translate("rank.error.unlinked")
	case errors.Is(err, context.DeadlineExceeded):
		return locale.Translate("rank.error.timeout")
	case errors.Is(err, ErrServer):
		return locale.Translate("rank.error.server")
	default:
		return locale.Translate("rank.error.unknown", "error", err.Error())
	}
}
