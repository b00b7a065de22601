package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTTL bounds how stale the remote settings cache may get before a
// refresh is attempted.
const DefaultTTL = 5 * time.Minute

// Resolver layers runtime settings: a remote endpoint (refreshed
// periodically), the last good remote snapshot, then static defaults from a
// YAML file. Lookups never fail and never block on the network.
type Resolver struct {
	url    string
	ttl    time.Duration
	client *http.Client
	logger *slog.Logger

	mu       sync.RWMutex
	remote   map[string]string
	static   map[string]string
	contacts map[string]string
}

type staticFile struct {
	Settings map[string]string `yaml:"settings"`
}

type contactsFile struct {
	Contacts map[string]string `yaml:"contacts"`
}

func NewResolver(url, staticPath, contactsPath string, logger *slog.Logger) (*Resolver, error) {
	r := &Resolver{
		url:      url,
		ttl:      DefaultTTL,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
		static:   map[string]string{},
		contacts: map[string]string{},
	}
	if staticPath != "" {
		data, err := os.ReadFile(staticPath)
		if err != nil {
			return nil, fmt.Errorf("read settings defaults: %w", err)
		}
		var sf staticFile
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("parse settings defaults: %w", err)
		}
		if sf.Settings != nil {
			r.static = sf.Settings
		}
	}
	if contactsPath != "" {
		data, err := os.ReadFile(contactsPath)
		if err != nil {
			return nil, fmt.Errorf("read contacts: %w", err)
		}
		var cf contactsFile
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("parse contacts: %w", err)
		}
		if cf.Contacts != nil {
			r.contacts = cf.Contacts
		}
	}
	return r, nil
}

// Reload fetches the remote settings document. On any failure the previous
// cache stays in place and the error is only logged.
func (r *Resolver) Reload(ctx context.Context) {
	if r.url == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		r.logger.Warn("settings refresh skipped", "err", err)
		return
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("settings fetch failed, keeping cached values", "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("settings fetch failed, keeping cached values", "status", resp.StatusCode)
		return
	}
	var values map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&values); err != nil {
		r.logger.Warn("settings response unreadable, keeping cached values", "err", err)
		return
	}
	r.mu.Lock()
	r.remote = values
	r.mu.Unlock()
	r.logger.Debug("settings refreshed", "keys", len(values))
}

// Run refreshes the cache on the TTL interval until ctx is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	r.Reload(ctx)
	ticker := time.NewTicker(r.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reload(ctx)
		}
	}
}

// Resolve returns the last good remote value for key, then the static
// default from file, then def.
func (r *Resolver) Resolve(key, def string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.remote[key]; ok {
		return v
	}
	if v, ok := r.static[key]; ok {
		return v
	}
	return def
}

func (r *Resolver) ResolveBool(key string, def bool) bool {
	v := r.Resolve(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (r *Resolver) ResolveInt(key string, def int) int {
	v := r.Resolve(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// DisplayName maps a known technician number to a human label.
func (r *Resolver) DisplayName(number string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.contacts[number]; ok {
		return name
	}
	return "Maintenance Team"
}
