package itp

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()

	var applied atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		if err := Watch(ctx, dir, func() { applied.Add(1) }); err != nil {
			t.Errorf("watch: %v", err)
		}
		close(done)
	}()
	// wait for the watch to register
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "concrete.yaml")
	require.NoError(t, os.WriteFile(path, []byte(concreteYAML), 0o644))

	// Debounce is 500ms; give it room.
	deadline := time.After(3 * time.Second)
	for applied.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("apply was never called after a file write")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not exit on cancel")
	}
}
