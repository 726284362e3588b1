package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNewFileWatcherDefaults(t *testing.T) {
	fw := newFileWatcher([]string{"/etc/tls/server.crt", "", "/etc/tls/server.key"}, 0, func() {}, nil)

	if fw.debounce != time.Second {
		t.Errorf("debounce = %v, want 1s default", fw.debounce)
	}
	if len(fw.Files()) != 2 {
		t.Errorf("empty paths should be dropped, got %v", fw.Files())
	}
}

func TestFileWatcherRelevant(t *testing.T) {
	fw := newFileWatcher([]string{"/certs/server.crt", "/certs/server.key"}, time.Second, func() {}, nil)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{
			name:  "write to watched file",
			event: fsnotify.Event{Name: "/certs/server.crt", Op: fsnotify.Write},
			want:  true,
		},
		{
			name:  "rename into place",
			event: fsnotify.Event{Name: "/certs/server.key", Op: fsnotify.Rename},
			want:  true,
		},
		{
			name:  "same basename under another directory",
			event: fsnotify.Event{Name: "/certs/..data/server.crt", Op: fsnotify.Create},
			want:  true,
		},
		{
			name:  "chmod only",
			event: fsnotify.Event{Name: "/certs/server.crt", Op: fsnotify.Chmod},
			want:  false,
		},
		{
			name:  "unrelated file in the same directory",
			event: fsnotify.Event{Name: "/certs/other.pem", Op: fsnotify.Write},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fw.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestFileWatcherLifecycle(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	if err := os.WriteFile(certPath, []byte("initial"), 0o600); err != nil {
		t.Fatalf("failed to seed certificate file: %v", err)
	}

	changed := make(chan struct{}, 1)
	fw := newFileWatcher([]string{certPath}, 50*time.Millisecond, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, nil)

	if err := fw.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		if err := fw.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	}()

	if !fw.Running() {
		t.Fatal("watcher should report running after Start")
	}
	if err := fw.Start(); err == nil {
		t.Error("second Start should fail while running")
	}

	if err := os.WriteFile(certPath, []byte("rotated"), 0o600); err != nil {
		t.Fatalf("failed to rotate certificate file: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}
