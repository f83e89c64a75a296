package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakePruner struct {
	calls atomic.Int32
	n     int
}

func (p *fakePruner) Prune() int {
	p.calls.Add(1)
	return p.n
}

func (p *fakePruner) Len() int { return 0 }

func TestJanitor_Sweep(t *testing.T) {
	a, b := &fakePruner{n: 2}, &fakePruner{n: 3}
	j := NewJanitor(map[string]Pruner{"tooltips": a, "other": b}, nil, time.Minute)

	assert.Equal(t, 5, j.sweep())
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestJanitor_StartStopsOnCancel(t *testing.T) {
	p := &fakePruner{}
	j := NewJanitor(map[string]Pruner{"tooltips": p}, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return p.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
