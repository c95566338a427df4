package async

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/taskdeck/pkg/observability"
)

type syncWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func waitFor(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background task did not complete")
	}
}

func TestSafeGo_RunsTask(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test", logger, func(ctx context.Context) error {
		close(done)
		return nil
	})

	waitFor(t, done)
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.ErrorLevel, syncWriter{&mu, &buf})
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test", logger, func(ctx context.Context) error {
		defer close(done)
		panic("boom")
	})

	waitFor(t, done)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return bytes.Contains(buf.Bytes(), []byte("panic in background task"))
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSafeGo_LogsError(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.WarnLevel, syncWriter{&mu, &buf})
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test", logger, func(ctx context.Context) error {
		defer close(done)
		return errors.New("task failure")
	})

	waitFor(t, done)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return bytes.Contains(buf.Bytes(), []byte("task failure"))
	}, 2*time.Second, 10*time.Millisecond)
}
