package service

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestImportLimiterAcquireRelease(t *testing.T) {
	limiter := NewImportLimiter(2, time.Second)

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("initial ActiveCount = %d, want 0", got)
	}
	if got := limiter.Available(); got != 2 {
		t.Errorf("initial Available = %d, want 2", got)
	}

	ctx := context.Background()
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if got := limiter.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := limiter.Available(); got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}

	limiter.Release()
	if got := limiter.ActiveCount(); got != 1 {
		t.Errorf("after Release, ActiveCount = %d, want 1", got)
	}
	limiter.Release()
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("after second Release, ActiveCount = %d, want 0", got)
	}
}

func TestImportLimiterRejectsWhenFull(t *testing.T) {
	limiter := NewImportLimiter(1, 100*time.Millisecond)

	ctx := context.Background()
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	start := time.Now()
	err := limiter.Acquire(ctx)
	elapsed := time.Since(start)

	if err != ErrTooManyImports {
		t.Errorf("expected ErrTooManyImports, got %v", err)
	}
	if elapsed < 90*time.Millisecond {
		t.Errorf("timeout too fast: %v", elapsed)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("timeout too slow: %v", elapsed)
	}

	limiter.Release()
}

func TestImportLimiterConcurrentAccess(t *testing.T) {
	const maxConcurrent = 3
	const totalRequests = 10

	limiter := NewImportLimiter(maxConcurrent, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	maxObserved := 0

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer limiter.Release()

			mu.Lock()
			if current := limiter.ActiveCount(); current > maxObserved {
				maxObserved = current
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)
		}()
	}

	wg.Wait()

	if maxObserved > maxConcurrent {
		t.Errorf("exceeded max concurrent: observed %d, max %d", maxObserved, maxConcurrent)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("final ActiveCount = %d, want 0", got)
	}
}

func TestImportLimiterTryAcquire(t *testing.T) {
	limiter := NewImportLimiter(1, time.Second)

	if !limiter.TryAcquire() {
		t.Error("first TryAcquire should succeed")
	}

	start := time.Now()
	if limiter.TryAcquire() {
		t.Error("second TryAcquire should fail")
		limiter.Release()
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("TryAcquire blocked for %v", elapsed)
	}

	limiter.Release()
	if !limiter.TryAcquire() {
		t.Error("TryAcquire after Release should succeed")
	}
	limiter.Release()
}

func TestImportLimiterContextCancellation(t *testing.T) {
	limiter := NewImportLimiter(1, 5*time.Second)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	cancelCtx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- limiter.Acquire(cancelCtx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Acquire did not return after context cancellation")
	}

	limiter.Release()
}

func TestImportLimiterWaitForDrain(t *testing.T) {
	limiter := NewImportLimiter(2, time.Second)

	ctx := context.Background()
	limiter.Acquire(ctx)
	limiter.Acquire(ctx)

	drainDone := make(chan error, 1)
	go func() {
		drainDone <- limiter.WaitForDrain(context.Background())
	}()

	select {
	case <-drainDone:
		t.Error("WaitForDrain returned too early")
	case <-time.After(50 * time.Millisecond):
	}

	limiter.Release()

	select {
	case <-drainDone:
		t.Error("WaitForDrain returned with one active")
	case <-time.After(50 * time.Millisecond):
	}

	limiter.Release()

	select {
	case err := <-drainDone:
		if err != nil {
			t.Errorf("WaitForDrain returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("WaitForDrain did not complete after all released")
	}
}

func TestImportLimiterStatus(t *testing.T) {
	limiter := NewImportLimiter(3, time.Second)

	status := limiter.Status()
	if status.Active != 0 || status.Available != 3 || status.MaxConcurrent != 3 {
		t.Errorf("initial status = %+v", status)
	}

	ctx := context.Background()
	limiter.Acquire(ctx)
	limiter.Acquire(ctx)

	status = limiter.Status()
	if status.Active != 2 {
		t.Errorf("Active = %d, want 2", status.Active)
	}
	if status.Available != 1 {
		t.Errorf("Available = %d, want 1", status.Available)
	}

	limiter.Release()
	limiter.Release()
}

func TestImportLimiterDefaults(t *testing.T) {
	limiter := NewImportLimiter(0, 0)

	if got := limiter.Status().MaxConcurrent; got != DefaultMaxConcurrentImports {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentImports)
	}
}
