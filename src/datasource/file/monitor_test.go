package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMonitorFiresOnNewParquetFile(t *testing.T) {
	dir := t.TempDir()
	mon, err := NewMonitor(dir)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	defer mon.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan string, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := mon.Watch(ctx, func(path string) { fired <- path }); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()

	target := filepath.Join(dir, "final_2022.parquet")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Not a parquet file; no event expected for this one.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-fired:
		if got != target {
			t.Errorf("handler path = %q, want %q", got, target)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler never fired for new parquet file")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}

	// The txt write must not have queued a second call.
	select {
	case got := <-fired:
		if filepath.Ext(got) != ".parquet" {
			t.Errorf("unexpected event for %q", got)
		}
	default:
	}
}
