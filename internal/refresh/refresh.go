package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"social-report/internal/config"
)

const (
	DefaultAPIURL   = "https://api.github.com"
	DefaultRef      = "main"
	DefaultCooldown = 5 * time.Minute
)

var (
	ErrCooldown      = errors.New("refresh is cooling down")
	ErrNotConfigured = errors.New("workflow refresh is not configured")
)

// CooldownError carries how long the caller still has to wait.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %d more minute(s) before refreshing again", e.Minutes())
}

// Minutes rounds the remaining wait up to whole minutes.
func (e *CooldownError) Minutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

// CooldownStore persists when the last refresh was triggered.
type CooldownStore interface {
	LastRefresh() time.Time
	RecordRefresh(at time.Time)
}

// CacheClearer is anything holding data the refresh invalidates.
type CacheClearer interface {
	ClearCache()
}

// Refresher dispatches the data workflow on GitHub Actions.
type Refresher struct {
	cfg      config.GitHubConfig
	cooldown time.Duration
	client   *http.Client
	store    CooldownStore
	logger   *logrus.Logger
	now      func() time.Time

	mu sync.Mutex
}

func NewRefresher(cfg config.GitHubConfig, store CooldownStore, logger *logrus.Logger) *Refresher {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Ref == "" {
		cfg.Ref = DefaultRef
	}
	cooldown := DefaultCooldown
	if cfg.CooldownMinutes > 0 {
		cooldown = time.Duration(cfg.CooldownMinutes) * time.Minute
	}

	return &Refresher{
		cfg:      cfg,
		cooldown: cooldown,
		client:   &http.Client{Timeout: 30 * time.Second},
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Remaining is the cooldown left before another refresh is allowed.
func (r *Refresher) Remaining() time.Duration {
	last := r.store.LastRefresh()
	if last.IsZero() {
		return 0
	}
	left := r.cooldown - r.now().Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

func (r *Refresher) dispatchURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		strings.TrimRight(r.cfg.APIURL, "/"), r.cfg.Owner, r.cfg.Repo, r.cfg.Workflow)
}

// Trigger dispatches the workflow and clears caches once GitHub accepts it.
// Calls inside the cooldown return a *CooldownError.
func (r *Refresher) Trigger(ctx context.Context, caches ...CacheClearer) error {
	if !r.cfg.Configured() {
		return ErrNotConfigured
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if left := r.Remaining(); left > 0 {
		return &CooldownError{Remaining: left}
	}

	payload, err := json.Marshal(map[string]string{"ref": r.cfg.Ref})
	if err != nil {
		return fmt.Errorf("failed to encode dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.dispatchURL(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create dispatch request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "token "+r.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to dispatch workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("workflow dispatch failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	r.store.RecordRefresh(r.now())
	for _, c := range caches {
		c.ClearCache()
	}

	r.logger.WithFields(logrus.Fields{
		"repo":     r.cfg.Owner + "/" + r.cfg.Repo,
		"workflow": r.cfg.Workflow,
		"ref":      r.cfg.Ref,
	}).Info("Data refresh workflow dispatched")
	return nil
}
