package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/config"
)

// ProviderConfig holds what a backend needs to open a cache.
type ProviderConfig struct {
	Size    int
	TTL     time.Duration
	OnEvict EvictCallback
	Logger  zerolog.Logger

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	// KeyPrefix namespaces Redis keys. Defaults to "ripper:".
	KeyPrefix string

	// Group labels the cache metrics. When empty the cache is not instrumented.
	Group string
}

// Provider opens a Cache from a ProviderConfig.
type Provider func(cfg ProviderConfig) (Cache, error)

var (
	mu        sync.RWMutex
	providers = make(map[string]Provider)
)

// Register makes a backend available under name. It panics on duplicates.
func Register(name string, p Provider) {
	mu.Lock()
	defer mu.Unlock()

	if p == nil {
		panic("cache: Register provider is nil")
	}
	if _, exists := providers[name]; exists {
		panic(fmt.Sprintf("cache: provider %q already registered", name))
	}
	providers[name] = p
}

// New opens the named backend, wrapping it with metrics when cfg.Group is set.
func New(name string, cfg ProviderConfig) (Cache, error) {
	mu.RLock()
	p, ok := providers[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("cache: unknown provider %q (registered: %v)", name, RegisteredProviders())
	}
	if cfg.Size <= 0 {
		cfg.Size = 256
	}

	if cfg.Group == "" {
		return p(cfg)
	}

	group := cfg.Group
	next := cfg.OnEvict
	cfg.OnEvict = func(key string, value []byte) {
		EvictionsTotal.WithLabelValues(group).Inc()
		if next != nil {
			next(key, value)
		}
	}

	inner, err := p(cfg)
	if err != nil {
		return nil, err
	}
	return newInstrumentedCache(inner, group), nil
}

// FromConfig opens the response cache described by the cache.* settings.
// It returns a nil Cache when caching is disabled.
func FromConfig(cfg *config.Config, logger zerolog.Logger) (Cache, error) {
	if cfg == nil || cfg.Cache.Provider == "" || cfg.Cache.Provider == "none" {
		return nil, nil
	}
	return New(cfg.Cache.Provider, ProviderConfig{
		Size:          cfg.Cache.Size,
		TTL:           config.ParseDuration(cfg.Cache.TTL, time.Hour),
		Logger:        logger,
		RedisAddress:  cfg.Cache.RedisAddress,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		Group:         "http",
	})
}

// RegisteredProviders returns the sorted backend names.
func RegisteredProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
