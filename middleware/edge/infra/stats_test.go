package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"edge-gateway/middleware/edge/domain"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMemoryStatsStore_Record(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "a|teams", RuleID: "teams", Outcome: domain.OutcomePassed, Allowed: true})
	_ = s.Record(ctx, domain.StatsEvent{Key: "a|teams", RuleID: "teams", Outcome: domain.OutcomeThrottled})
	_ = s.Record(ctx, domain.StatsEvent{Outcome: domain.OutcomeForbidden})

	if got := s.Total(); got.Allowed != 1 || got.Denied != 2 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got := s.ByRule()["teams"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected rule counters %+v", got)
	}
	if got := s.ByKey()["a|teams"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected key counters %+v", got)
	}
	if s.Outcome(domain.OutcomeForbidden) != 1 {
		t.Fatalf("expected one forbidden outcome")
	}
}

func TestRedisStatsStore_Record(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStatsStore(db, WithStatsPrefix("stats"), WithStatsBucket("none"))

	mock.ExpectHIncrBy("stats:total", "throttled", 1).SetVal(1)
	mock.ExpectHIncrBy("stats:rule", "analyze:throttled", 1).SetVal(1)

	err := s.Record(context.Background(), domain.StatsEvent{
		Key:     "1.2.3.4|analyze",
		RuleID:  "analyze",
		Outcome: domain.OutcomeThrottled,
		At:      time.Unix(1_700_000_000, 0),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("redis expectations not met: %v", err)
	}
}

func TestRedisStatsStore_RecordMinuteBucketAndKeys(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStatsStore(db, WithStatsPrefix("stats:"), WithStatsTTL(time.Hour), WithStatsTrackKeys(true))
	at := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)

	mock.ExpectHIncrBy("stats:total", "passed", 1).SetVal(1)
	mock.ExpectHIncrBy("stats:minute:202501011230", "passed", 1).SetVal(1)
	mock.ExpectExpire("stats:minute:202501011230", time.Hour).SetVal(true)
	mock.ExpectHIncrBy("stats:rule", "teams:passed", 1).SetVal(1)
	mock.ExpectHIncrBy("stats:key:1.2.3.4|teams", "passed", 1).SetVal(1)
	mock.ExpectExpire("stats:key:1.2.3.4|teams", time.Hour).SetVal(true)

	err := s.Record(context.Background(), domain.StatsEvent{
		Key:     "1.2.3.4|teams",
		RuleID:  "teams",
		Outcome: domain.OutcomePassed,
		Allowed: true,
		At:      at,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("redis expectations not met: %v", err)
	}
}

func TestRedisStatsStore_Snapshot(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStatsStore(db, WithStatsPrefix("stats"))

	mock.ExpectHGetAll("stats:total").SetVal(map[string]string{"passed": "7", "throttled": "2"})
	mock.ExpectHGetAll("stats:rule").SetVal(map[string]string{
		"analyze:passed":    "5",
		"analyze:throttled": "2",
		"teams:passed":      "2",
		"broken":            "1",
	})

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Total["passed"] != 7 || snap.Total["throttled"] != 2 {
		t.Fatalf("unexpected totals %v", snap.Total)
	}
	if snap.ByRule["analyze"]["throttled"] != 2 || snap.ByRule["teams"]["passed"] != 2 {
		t.Fatalf("unexpected rules %v", snap.ByRule)
	}
	if _, ok := snap.ByRule["broken"]; ok {
		t.Fatalf("malformed field should be skipped")
	}
}

func TestRedisStatsStore_SnapshotError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStatsStore(db)

	mock.ExpectHGetAll("edge:stats:total").SetErr(errors.New("conn refused"))

	if _, err := s.Snapshot(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPrometheusStats_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusStats(reg, "test")
	ctx := context.Background()

	_ = p.Record(ctx, domain.StatsEvent{RuleID: "teams", Outcome: domain.OutcomePassed, Duration: time.Millisecond})
	_ = p.Record(ctx, domain.StatsEvent{RuleID: "teams", Outcome: domain.OutcomePassed})
	_ = p.Record(ctx, domain.StatsEvent{Outcome: domain.OutcomeForbidden})

	if got := testutil.ToFloat64(p.requests.WithLabelValues("teams", "passed")); got != 2 {
		t.Fatalf("expected 2 passed, got %v", got)
	}
	if got := testutil.ToFloat64(p.requests.WithLabelValues("none", "forbidden")); got != 1 {
		t.Fatalf("expected 1 forbidden, got %v", got)
	}
	if n := testutil.CollectAndCount(p.duration); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

type errStats struct{ err error }

func (e errStats) Record(context.Context, domain.StatsEvent) error { return e.err }

func TestFanoutStats_RecordsAllAndJoinsErrors(t *testing.T) {
	mem := NewMemoryStatsStore()
	boom := errors.New("boom")
	f := FanoutStats{errStats{err: boom}, nil, mem}

	err := f.Record(context.Background(), domain.StatsEvent{Outcome: domain.OutcomePassed, Allowed: true})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if mem.Total().Allowed != 1 {
		t.Fatalf("expected remaining sinks to still record")
	}
}
