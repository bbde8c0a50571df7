package config

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		levels []string
		errs   []error
	)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path,
			func(c *Config) {
				mu.Lock()
				defer mu.Unlock()
				levels = append(levels, c.Logging.Level)
			},
			func(err error) {
				mu.Lock()
				defer mu.Unlock()
				errs = append(errs, err)
			})
	}()

	// Give the watcher time to register before the first write.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(levels) > 0 && levels[len(levels)-1] == "debug"
	})

	if err := os.WriteFile(path, []byte("mqtt:\n  qos: 9\n"), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	})
	mu.Lock()
	if !strings.Contains(errs[0].Error(), "mqtt.qos") {
		t.Errorf("error = %v, want validation failure", errs[0])
	}
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), "/nonexistent/dir/config.yaml", nil, nil)
	if err == nil {
		t.Fatal("Watch() should fail for a missing directory")
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 3s")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
