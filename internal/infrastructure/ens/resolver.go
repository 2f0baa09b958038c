package ens

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"splitchain/internal/domain/entity"
	"splitchain/pkg/logger"
)

// Resolver resolves human-readable names to addresses and back, for display
// only. Lookups are cached and failures resolve to empty values; nothing
// downstream may depend on a resolution succeeding.
type Resolver struct {
	endpoint   string
	httpClient *http.Client

	mu    sync.RWMutex
	cache map[string]resolution
}

type resolution struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
}

func NewResolver(endpoint string) *Resolver {
	return &Resolver{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      make(map[string]resolution),
	}
}

// ResolveName returns the address a name points at, or "" if it cannot be
// resolved.
func (r *Resolver) ResolveName(ctx context.Context, name string) string {
	result := r.lookup(ctx, name)
	return entity.NormalizeAddress(result.Address)
}

// ResolveAddress reverse-resolves an address to its primary name, or "".
func (r *Resolver) ResolveAddress(ctx context.Context, address string) string {
	return r.lookup(ctx, entity.NormalizeAddress(address)).Name
}

// Avatar returns the avatar URL registered for a name or address, or "".
func (r *Resolver) Avatar(ctx context.Context, nameOrAddress string) string {
	return r.lookup(ctx, nameOrAddress).Avatar
}

func (r *Resolver) lookup(ctx context.Context, key string) resolution {
	if key == "" {
		return resolution{}
	}

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s", r.endpoint, url.PathEscape(key)), nil)
	if err != nil {
		return resolution{}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		logger.Debug("Name resolution failed for %s: %v", key, err)
		return resolution{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resolution{}
	}

	var result resolution
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return resolution{}
	}

	r.mu.Lock()
	r.cache[key] = result
	r.mu.Unlock()
	return result
}
