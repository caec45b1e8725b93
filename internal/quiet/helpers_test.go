package quiet

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shaitools891-svg/ME-Dictionary/internal/settings"
)

// fakeDevice records every call
type fakeDevice struct {
	mu       sync.Mutex
	vibrates [][]time.Duration
	silent   []bool
	notes    []string
	failWith error
}

func (d *fakeDevice) Vibrate(pattern []time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vibrates = append(d.vibrates, pattern)
	return d.failWith
}

func (d *fakeDevice) SetSilent(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent = append(d.silent, on)
	return d.failWith
}

func (d *fakeDevice) Notify(title, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notes = append(d.notes, title)
	return d.failWith
}

func (d *fakeDevice) snapshot() ([][]time.Duration, []bool, []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]time.Duration(nil), d.vibrates...), append([]bool(nil), d.silent...), append([]string(nil), d.notes...)
}

func samePattern(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// failingRepo fails every read
type failingRepo struct{ settings.Repo }

var errRepoDown = errors.New("repo down")

func (failingRepo) Get(context.Context, string) (*settings.Settings, error) {
	return nil, errRepoDown
}

// stallingRedis accepts connections and never answers, like a Redis that
// has stopped responding
func stallingRedis(t *testing.T) *redis.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()

	client := redis.NewClient(&redis.Options{
		Addr:                  ln.Addr().String(),
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	})
	t.Cleanup(func() {
		_ = client.Close()
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return client
}
