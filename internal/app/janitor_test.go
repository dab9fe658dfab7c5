package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePurger struct {
	batches []int
	err     error
	calls   int
}

func (f *fakePurger) PurgeExpiredExports(_ context.Context, limit int) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	if n > limit {
		n = limit
	}
	return n, nil
}

func TestPurgeExpiredExportsDrainsFullBatches(t *testing.T) {
	p := &fakePurger{batches: []int{exportPurgeBatch, exportPurgeBatch, 3}}
	got := purgeExpiredExports(context.Background(), newTestLogger(t), p)
	if want := 2*exportPurgeBatch + 3; got != want {
		t.Fatalf("purged: want=%d got=%d", want, got)
	}
	if p.calls != 3 {
		t.Fatalf("calls: want=3 got=%d", p.calls)
	}
}

func TestPurgeExpiredExportsStopsOnError(t *testing.T) {
	p := &fakePurger{err: errors.New("db down")}
	if got := purgeExpiredExports(context.Background(), newTestLogger(t), p); got != 0 {
		t.Fatalf("purged: want=0 got=%d", got)
	}
	if p.calls != 1 {
		t.Fatalf("calls: want=1 got=%d", p.calls)
	}
}

func TestRunExportJanitorStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runExportJanitor(ctx, newTestLogger(t), &fakePurger{}, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("janitor did not stop")
	}
}
