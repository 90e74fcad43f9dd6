package tailer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pterm/pterm"
)

func TestTailer_StartsAtEndSkipsHistoricalContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte("historical line 1\nhistorical line 2\n"), 0644); err != nil {
		t.Fatalf("failed to seed log file: %v", err)
	}

	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	tl := New(path, 20*time.Millisecond, logger)

	lines := make(chan string, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tl.Run(ctx, func(line string) { lines <- line })

	time.Sleep(60 * time.Millisecond)
	if err := appendLine(path, "new line 1"); err != nil {
		t.Fatalf("failed to append: %v", err)
	}

	select {
	case line := <-lines:
		if line != "new line 1" {
			t.Errorf("expected 'new line 1', got %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tailed line")
	}
}

func TestTailer_RotationResetsToZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("failed to seed log file: %v", err)
	}

	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	tl := New(path, 20*time.Millisecond, logger)

	lines := make(chan string, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tl.Run(ctx, func(line string) { lines <- line })

	time.Sleep(60 * time.Millisecond)
	if err := appendLine(path, "before rotation"); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	<-drainOne(t, lines)

	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}
	if err := appendLine(path, "ERROR: x"); err != nil {
		t.Fatalf("failed to append after rotation: %v", err)
	}

	select {
	case line := <-lines:
		if line != "ERROR: x" {
			t.Errorf("expected 'ERROR: x' after rotation, got %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for post-rotation line")
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func drainOne(t *testing.T, lines <-chan string) <-chan string {
	t.Helper()
	out := make(chan string, 1)
	select {
	case l := <-lines:
		out <- l
	case <-time.After(2 * time.Second):
		t.Fatal("timed out draining expected line")
	}
	return out
}
