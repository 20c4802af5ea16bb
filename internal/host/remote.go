package host

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/kui/internal/infrastructure/resilience"
)

// RemoteOptions configures fetching of http(s) locators
type RemoteOptions struct {
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Rate         rate.Limit
	Burst        int
	UserAgent    string
	Breaker      resilience.Settings
}

// DefaultRemoteOptions returns the options used by the shell
func DefaultRemoteOptions() RemoteOptions {
	return RemoteOptions{
		Timeout:      15 * time.Second,
		Retries:      2,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
		Rate:         rate.Inf,
		UserAgent:    "kui/" + Version,
		Breaker: resilience.Settings{
			Cooldown: 30 * time.Second,
			Trip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		},
	}
}

// Remote fetches http(s) locators with retries, a rate limit and one
// circuit breaker per host
type Remote struct {
	client   *resty.Client
	limiter  *rate.Limiter
	breakers *resilience.Group
	logger   *zap.Logger
}

// NewRemote creates a fetcher
func NewRemote(opts RemoteOptions, logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("remote")

	retry := retryablehttp.NewClient()
	retry.RetryMax = opts.Retries
	retry.RetryWaitMin = opts.RetryWaitMin
	retry.RetryWaitMax = opts.RetryWaitMax
	retry.Logger = nil

	client := resty.NewWithClient(retry.StandardClient())
	client.SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	limit := opts.Rate
	if limit == 0 {
		limit = rate.Inf
	}

	settings := opts.Breaker
	userHook := settings.OnStateChange
	settings.OnStateChange = func(key string, from, to resilience.State) {
		logger.Warn("Remote breaker changed state",
			zap.String("host", key),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
		if userHook != nil {
			userHook(key, from, to)
		}
	}

	return &Remote{
		client:   client,
		limiter:  rate.NewLimiter(limit, opts.Burst),
		breakers: resilience.NewGroup(settings),
		logger:   logger,
	}
}

// Breakers exposes the per-host breakers
func (r *Remote) Breakers() *resilience.Group {
	return r.breakers
}

// Fetch downloads rawURL. 4xx replies are reported as not found without
// counting against the host.
func (r *Remote) Fetch(ctx context.Context, rawURL string) (Asset, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Asset{}, fmt.Errorf("%w: %s", ErrBadLocator, rawURL)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return Asset{}, err
	}

	var asset Asset
	var clientErr error
	err = r.breakers.For(u.Host).Do(ctx, func(ctx context.Context) error {
		resp, err := r.client.R().SetContext(ctx).Get(rawURL)
		if err != nil {
			return err
		}
		status := resp.StatusCode()
		switch {
		case status >= http.StatusInternalServerError:
			return fmt.Errorf("remote status %d", status)
		case status >= http.StatusBadRequest:
			clientErr = fmt.Errorf("%w: %s (status %d)", ErrNotFound, rawURL, status)
			return nil
		}

		body := resp.Body()
		asset = Asset{
			Path: u.Path,
			Data: body,
			MIME: contentType(resp.Header().Get("Content-Type"), u.Path, body),
		}
		return nil
	})
	if err != nil {
		r.logger.Debug("Fetch failed", zap.String("url", rawURL), zap.Error(err))
		return Asset{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if clientErr != nil {
		return Asset{}, clientErr
	}
	return asset, nil
}

func contentType(header, name string, body []byte) string {
	if header != "" {
		if media, _, err := mime.ParseMediaType(header); err == nil {
			return media
		}
	}
	return MIMEType(name, body)
}
