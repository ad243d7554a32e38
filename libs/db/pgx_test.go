package db

import (
	"context"
	"testing"
	"time"
)

func TestPoolConfigDefaults(t *testing.T) {
	pc := PoolConfig{MinConns: 20, MaxConns: 4}.withDefaults()
	if pc.MaxConns != 4 || pc.MinConns != 4 {
		t.Fatalf("min conns should be capped at max: %+v", pc)
	}
	pc = PoolConfig{}.withDefaults()
	if pc.MaxConns != 10 || pc.MinConns != 1 || pc.MaxConnLifetime != 30*time.Minute {
		t.Fatalf("unexpected defaults: %+v", pc)
	}
}

func TestReadyCheckWithoutPool(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
