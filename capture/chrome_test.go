package capture

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/grovetools/recorder/actions"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromePageRecordsSessionStart(t *testing.T) {
	chrome := testutil.RequireChrome(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts := ChromeOptionsFrom(config.Defaults(), true)
	opts.ExecPath = chrome
	page, err := NewChromePage(ctx, opts)
	require.NoError(t, err)
	defer page.Close()

	raw, err := page.Evaluate(ctx, "1 + 1")
	require.NoError(t, err)
	assert.Equal(t, "2", string(raw))

	html := `<html><body><button id="go">Go</button></body></html>`
	feed := NewFeed(16)
	runCtx, stop := context.WithCancel(ctx)
	feed.Start(runCtx, &BrowserSource{
		Page:     page,
		URL:      "data:text/html," + url.PathEscape(html),
		Interval: 50 * time.Millisecond,
	})

	var start *Event
	for start == nil {
		select {
		case ev, ok := <-feed.Events():
			require.True(t, ok, "source ended before session-start")
			if ev.Type == actions.TypeSessionStart {
				start = &ev
			}
		case <-ctx.Done():
			t.Fatal("no session-start event from the page")
		}
	}
	stop()
	collect(t, feed)
	assert.NoError(t, feed.Err())

	assert.Contains(t, start.Data, "viewport")
	assert.Contains(t, start.Data, "userAgent")
}
