package infra

import (
	"context"
	"testing"

	"kv-gateway/kvrpc/domain"
)

func TestMemoryStatsStore_Record(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Identity: "a", Allowed: true, Method: "get"})
	_ = s.Record(ctx, domain.StatsEvent{Identity: "a", Allowed: false, Method: "get"})
	_ = s.Record(ctx, domain.StatsEvent{Identity: "b", Allowed: true, Method: "set"})

	if got := s.Total(); got.Allowed != 2 || got.Denied != 1 {
		t.Fatalf("unexpected total: %+v", got)
	}
	if got := s.ByMethod()["get"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected get counters: %+v", got)
	}
	if got := s.ByKey()["a"]; got.Denied != 1 {
		t.Fatalf("unexpected counters for a: %+v", got)
	}
}

func TestMemoryStatsStore_DoesNotTrackKeysByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Identity: "a", Allowed: true})

	if len(s.ByKey()) != 0 {
		t.Fatalf("expected no per-key counters")
	}
}

func TestRedisStatsStore_NilClientIsNoop(t *testing.T) {
	var s *RedisStatsStore
	if err := s.Record(context.Background(), domain.StatsEvent{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
