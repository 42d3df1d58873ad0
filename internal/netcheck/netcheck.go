// Package netcheck probes for internet access before penv starts talking to
// package indexes. pip fails slowly and verbosely when offline, so a quick
// HEAD request up front gives a clearer message.
package netcheck

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shinji-kodama/penv/internal/model"
)

const (
	// DefaultURL is probed when no URL is configured. PyPI is what pip
	// will talk to first, so it is a better signal than a search engine.
	DefaultURL = "https://pypi.org/simple/"

	// DefaultTimeout bounds the probe.
	DefaultTimeout = 5 * time.Second
)

// Check issues a HEAD request to url and returns a CLIError with
// ExitNetworkUnavailable if no response arrives within timeout. Any HTTP
// status counts as connected; only transport failures are fatal.
func Check(ctx context.Context, client *http.Client, url string, timeout time.Duration) error {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return model.WrapCLIError(model.ExitNetworkUnavailable, fmt.Sprintf("invalid connectivity URL %q", url), err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return model.WrapCLIError(model.ExitNetworkUnavailable,
			"penv requires an internet connection; check your connection or use --offline", err)
	}
	_ = resp.Body.Close()
	return nil
}
