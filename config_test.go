package notifykit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preferences"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("NOTIFY_DISPATCH_TIMEOUT", "3s")
	t.Setenv("NOTIFY_DRAIN_LIMIT", "7")

	cfg, err := notifykit.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.DispatchTimeout)
	assert.Equal(t, 7, cfg.DrainLimit)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 5*time.Minute, cfg.RetryMaxDelay)
}

func TestWithConfig_DispatchTimeout(t *testing.T) {
	t.Parallel()

	registry, err := notification.NewRegistry(notification.DefaultCatalog()...)
	require.NoError(t, err)

	dispatcher := dispatch.NewDispatcher()
	_, err = notifykit.New(registry, notification.NewMemoryStorage(), preferences.NewMemoryStore(), dispatcher,
		notifykit.WithConfig(notifykit.Config{DispatchTimeout: 3 * time.Second}),
	)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, dispatcher.Timeout())

	dispatcher = dispatch.NewDispatcher()
	_, err = notifykit.New(registry, notification.NewMemoryStorage(), preferences.NewMemoryStore(), dispatcher,
		notifykit.WithDispatchTimeout(time.Second),
	)
	require.NoError(t, err)
	assert.Equal(t, time.Second, dispatcher.Timeout())

	// Unset timeout keeps the dispatcher's own.
	dispatcher = dispatch.NewDispatcher()
	_, err = notifykit.New(registry, notification.NewMemoryStorage(), preferences.NewMemoryStore(), dispatcher)
	require.NoError(t, err)
	assert.Equal(t, dispatch.DefaultTimeout, dispatcher.Timeout())
}
