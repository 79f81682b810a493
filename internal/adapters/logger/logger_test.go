package logger_test

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/gale/internal/adapters/logger"
)

// syncBuffer makes bytes.Buffer safe for the concurrency test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogger_Levels(t *testing.T) {
	log := logger.New()
	concrete, ok := log.(*logger.Logger)
	require.True(t, ok)

	var buf syncBuffer
	concrete.SetOutput(&buf)

	log.Debug("debugging")
	log.Info("installing")
	log.Warn("retrying")
	log.Error(errors.New("checkout failed"))

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "installing")
	assert.Contains(t, out, "retrying")
	assert.Contains(t, out, "checkout failed")
}

func TestLogger_ConcurrentUse(t *testing.T) {
	log := logger.New()
	concrete := log.(*logger.Logger)

	var buf syncBuffer
	concrete.SetOutput(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				log.Info("message")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, strings.Count(buf.String(), "message"))
}
