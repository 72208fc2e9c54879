package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	if want := runtime.GOMAXPROCS(0); pool.Workers() != want {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), want)
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(work)

	if got := counter.Load(); got != 100 {
		t.Errorf("counter = %d, want 100", got)
	}
}

func TestWorkerPool_For(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		chunk int
	}{
		{"single chunk", 10, 64},
		{"exact multiple", 256, 64},
		{"ragged tail", 1000, 64},
		{"default chunk", 5000, 0},
		{"chunk of one", 17, 1},
	}
	pool := NewWorkerPool(4)
	defer pool.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			pool.For(tt.n, tt.chunk, func(lo, hi int) {
				for i := lo; i < hi; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times, want 1", i, h)
				}
			}
		})
	}
}

func TestWorkerPool_ForEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	called := false
	pool.For(0, 8, func(int, int) { called = true })
	if called {
		t.Error("For(0) must not call fn")
	}
}

func TestWorkerPool_NilRunsInline(t *testing.T) {
	var pool *WorkerPool

	sum := 0
	pool.For(100, 7, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			sum += i
		}
	})
	if sum != 4950 {
		t.Errorf("sum = %d, want 4950", sum)
	}
	if pool.Workers() != 1 || pool.IsRunning() {
		t.Error("nil pool should report one inline worker and not running")
	}
	pool.Close()
}

func TestWorkerPool_ClosedRunsInline(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()
	pool.Close() // idempotent

	var counter atomic.Int64
	pool.ExecuteAll([]func(){
		func() { counter.Add(1) },
		func() { counter.Add(1) },
	})
	if counter.Load() != 2 {
		t.Errorf("closed pool dropped work: counter = %d", counter.Load())
	}
}

func BenchmarkWorkerPool_For(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()
	data := make([]float64, 1<<16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.For(len(data), 4096, func(lo, hi int) {
			for j := lo; j < hi; j++ {
				data[j] = float64(j) * 0.5
			}
		})
	}
}
