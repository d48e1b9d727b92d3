package redis

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/pkg/testutil"
)

// TestReleaserRunsOnce calls one unlock from many goroutines against an
// unreachable server. Only the first call may attempt the release, so
// exactly one failure is logged.
func TestReleaserRunsOnce(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	var logs bytes.Buffer
	l := NewLocker(client, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	unlock := l.releaser("consentd:lock:subject:u1", "token")

	result := testutil.RunConcurrent(16, func(int) error {
		unlock()
		return nil
	})

	require.Equal(t, int32(16), result.Successes)
	assert.Equal(t, 1, strings.Count(logs.String(), "release subject lock failed"))
}
