package mcphost_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mcphost "github.com/MegaGrindStone/go-mcphost"
)

func TestRunnerReturnsResultAndError(t *testing.T) {
	r := mcphost.NewRunner()
	defer r.Close()

	ctx := context.Background()

	var result int
	if err := r.Run(ctx, func(context.Context) error {
		result = 42
		return nil
	}); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
	if result != 42 {
		t.Errorf("result = %d, want 42", result)
	}

	wantErr := errors.New("unit of work failed")
	err := r.Run(ctx, func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Run error = %v, want %v", err, wantErr)
	}
}

func TestRunnerSerializesConcurrentCalls(t *testing.T) {
	r := mcphost.NewRunner()
	defer r.Close()

	ctx := context.Background()

	var inFlight atomic.Int32
	var maxInFlight atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Run(ctx, func(context.Context) error {
				n := inFlight.Add(1)
				if max := maxInFlight.Load(); n > max {
					maxInFlight.Store(n)
				}
				time.Sleep(time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("Run returned unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if max := maxInFlight.Load(); max != 1 {
		t.Errorf("observed %d units in flight at once, want 1", max)
	}
}

func TestRunnerRunAfterClose(t *testing.T) {
	r := mcphost.NewRunner()
	r.Close()

	err := r.Run(context.Background(), func(context.Context) error {
		t.Error("unit of work ran on closed runner")
		return nil
	})
	if !errors.Is(err, mcphost.ErrRunnerClosed) {
		t.Errorf("Run error = %v, want ErrRunnerClosed", err)
	}
}

func TestRunnerCloseIsIdempotent(t *testing.T) {
	r := mcphost.NewRunner()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Close()
		r.Close()
		r.Close()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("repeated Close did not return")
	}
}

func TestRunnerCancelledContext(t *testing.T) {
	r := mcphost.NewRunner()
	defer r.Close()

	// Occupy the worker so the next submission has to wait on the queue.
	release := make(chan struct{})
	go func() {
		_ = r.Run(context.Background(), func(context.Context) error {
			<-release
			return nil
		})
	}()
	// Give the occupying job a moment to get picked up.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx, func(context.Context) error {
		return nil
	})
	close(release)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func ExampleRunner() {
	r := mcphost.NewRunner()
	defer r.Close()

	var sum int
	_ = r.Run(context.Background(), func(context.Context) error {
		sum = 40 + 2
		return nil
	})
	fmt.Println(sum)
	// Output: 42
}
