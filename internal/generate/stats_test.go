package generate

import (
	"errors"
	"testing"
	"time"
)

func TestLLMStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(OpGenerate, 100, nil)
	stats.Record(OpGenerate, 200, nil)
	stats.Record(OpGenerate, 300, errors.New("boom"))
	stats.Record(OpGenerate, 400, nil)
	stats.Record(OpGenerate, 500, nil)

	snap, ok := stats.Snapshot()[OpGenerate]
	if !ok {
		t.Fatal("expected generate snapshot")
	}
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.Errors != 1 {
		t.Fatalf("expected errors=1, got %d", snap.Errors)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got %d/%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestLLMStatsSeparatesOperations(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(OpEmbed, 40, nil)
	stats.Record(OpGenerate, 900, nil)

	snap := stats.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(snap))
	}
	if snap[OpEmbed].MaxMs != 40 || snap[OpGenerate].MinMs != 900 {
		t.Fatalf("operations mixed: %+v", snap)
	}
}

func TestLLMStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewLLMStats(10 * time.Millisecond)
	stats.Record(OpEmbed, 100, nil)
	time.Sleep(25 * time.Millisecond)

	if snap := stats.Snapshot(); len(snap) != 0 {
		t.Fatalf("expected no operations after prune, got %+v", snap)
	}

	stats.Record(OpEmbed, 200, nil)
	snap := stats.Snapshot()[OpEmbed]
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestLLMStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(OpGenerate, -10, nil)
	snap := stats.Snapshot()[OpGenerate]
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}
