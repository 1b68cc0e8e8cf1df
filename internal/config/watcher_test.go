package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "azdoauth.yaml")
	initial := "provider:\n  clientId: a\n  clientSecret: first\n"
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var changes []*Config
	var failures []error

	w, err := NewWatcher(path, &WatcherConfig{
		DebounceDuration: 50 * time.Millisecond,
		OnChange: func(cfg *Config) error {
			mu.Lock()
			defer mu.Unlock()
			changes = append(changes, cfg)
			return nil
		},
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			failures = append(failures, err)
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	w.loadEnv = false

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("provider:\n  clientId: a\n  clientSecret: second\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) > 0
	})

	mu.Lock()
	last := changes[len(changes)-1]
	mu.Unlock()
	if last.Provider.ClientSecret != "second" {
		t.Errorf("ClientSecret = %q, want second", last.Provider.ClientSecret)
	}

	// An invalid file is reported and not applied
	if err := os.WriteFile(path, []byte("provider:\n  clientId: a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failures) > 0
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
