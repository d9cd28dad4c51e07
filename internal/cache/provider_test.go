package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/config"
)

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New("nonexistent", ProviderConfig{})
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "memory") {
		t.Errorf("Expected error to list registered providers, got %v", err)
	}
}

func TestRegisteredProviders(t *testing.T) {
	names := RegisteredProviders()
	if len(names) != 2 || names[0] != "memory" || names[1] != "redis" {
		t.Errorf("Expected [memory redis], got %v", names)
	}
}

func TestNew_RedisInvalidAddress(t *testing.T) {
	_, err := New("redis", ProviderConfig{TTL: time.Hour, RedisAddress: "localhost:59999"})
	if err == nil {
		t.Fatal("Expected error when connecting to invalid Redis address")
	}
}

func TestFromConfig_Disabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.Provider = "none"

	c, err := FromConfig(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if c != nil {
		t.Error("Expected nil cache when provider is none")
	}
}

func TestFromConfig_Memory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.Provider = "memory"
	cfg.Cache.Size = 4
	cfg.Cache.TTL = "1m"

	c, err := FromConfig(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*instrumentedCache); !ok {
		t.Errorf("Expected instrumented cache, got %T", c)
	}
	c.Set("k", []byte("v"))
	if c.Len() != 1 {
		t.Errorf("Expected Len 1, got %d", c.Len())
	}
}

func TestKey(t *testing.T) {
	a := Key("GET", "https://wetv.vip/play/abc")
	b := Key("GET", "https://wetv.vip/play/abd")
	if a == b {
		t.Error("Expected different URLs to produce different keys")
	}
	if a != Key("GET", "https://wetv.vip/play/abc") {
		t.Error("Expected key to be stable")
	}
	if !strings.HasPrefix(a, "GET:") {
		t.Errorf("Expected method prefix, got %q", a)
	}
}
