package integration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zoobzio/pulsewatch"
)

// waitFor polls a condition until it returns true or timeout is reached.
// Uses short polling intervals for fast tests with reliable results.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// writeFixture replaces path atomically so a watcher never reads a torn file.
func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("failed to replace fixture: %v", err)
	}
}

// sinkNames returns the names of the mirrored sinks in index order.
func sinkNames(m *pulsewatch.Mirror) []string {
	var names []string
	for _, s := range m.Sinks() {
		names = append(names, s.Name)
	}
	return names
}
