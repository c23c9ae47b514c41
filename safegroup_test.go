package adbkit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestGoSafeRestartsAfterPanic(t *testing.T) {
	sg := NewSafeGroup(context.Background())
	var runs atomic.Int32
	sg.GoSafe("flaky", func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			panic("first run blows up")
		}
		return nil
	})
	if err := sg.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if got := runs.Load(); got != 2 {
		t.Fatalf("expected restart after panic, got %d runs", got)
	}
}

func TestGoSafeErrorCancelsGroup(t *testing.T) {
	sg := NewSafeGroup(context.Background())
	boom := errors.New("boom")
	sg.GoSafe("failing", func(ctx context.Context) error { return boom })
	sg.GoSafe("waiting", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	if err := sg.Wait(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
