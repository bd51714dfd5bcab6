package client

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalWatcher(t *testing.T) {
	dir := t.TempDir()
	signal := filepath.Join(dir, "changes.signal")

	var hits atomic.Int32
	w, err := NewSignalWatcher(signal, func() { hits.Add(1) }, quietLogger())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer func() { assert.NoError(t, w.Stop()) }()

	// Посторонние файлы игнорируются.
	require.NoError(t, TouchChangeSignal(filepath.Join(dir, "other")))
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, hits.Load())

	require.NoError(t, TouchChangeSignal(signal))
	assert.Eventually(t, func() bool { return hits.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSignalWatcher_StartTwice(t *testing.T) {
	w, err := NewSignalWatcher(filepath.Join(t.TempDir(), "s"), func() {}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	assert.Error(t, w.Start())
}
