package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRateLimitScriptInitialized(t *testing.T) {
	// Compile-time smoke test: the script should be initialized.
	if rateLimitScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestAllowRate_GuardClauses(t *testing.T) {
	// Never dialed; the guards must reject before any network use.
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()

	if _, err := AllowRate(context.Background(), nil, "k", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := AllowRate(context.Background(), rdb, "", 1, time.Second); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := AllowRate(context.Background(), rdb, "k", 0, time.Second); err == nil {
		t.Fatalf("expected error for non-positive limit")
	}
	if _, err := AllowRate(context.Background(), rdb, "k", 1, 0); err == nil {
		t.Fatalf("expected error for non-positive window")
	}
}
