// Package collyfetcher implements retrieval.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/remotefiles/internal/retrieval"
)

const defaultTimeout = 30 * time.Second

// ErrBodyTooLarge is returned when a response exceeds Config.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodyBytes caps the response size; zero means unlimited.
	MaxBodyBytes int
	// Transport overrides the default pooled transport.
	Transport http.RoundTripper
}

// Fetcher implements retrieval.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Transport and timeout live on the collector's shared
// backend, so they are fixed here rather than per request.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.ParseHTTPErrorResponse = true
	c.MaxBodySize = 0
	if cfg.MaxBodyBytes > 0 {
		// One extra byte distinguishes "exactly at the limit" from "over it".
		c.MaxBodySize = cfg.MaxBodyBytes + 1
	}
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	transport := cfg.Transport
	if transport == nil {
		transport = newHTTPTransport()
	}
	c.WithTransport(&rawBodyTransport{base: transport})
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET using Colly. Non-2xx statuses are returned
// as responses, not errors. The body is returned byte for byte as served;
// only a Content-Encoding is undone.
func (f *Fetcher) Fetch(ctx context.Context, request retrieval.Request) (retrieval.Response, error) {
	var (
		result   retrieval.Response
		fetchErr error
	)
	start := time.Now()
	capture := &rawCapture{}
	collector := f.baseCollector.Clone()
	collector.Context = withRawCapture(ctx, capture)
	f.configureCollectorHooks(collector, request, start, capture, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return retrieval.Response{Duration: time.Since(start)}, err
	}
	if f.cfg.MaxBodyBytes > 0 && len(result.Body) > f.cfg.MaxBodyBytes {
		return retrieval.Response{}, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.cfg.MaxBodyBytes)
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request retrieval.Request,
	start time.Time,
	capture *rawCapture,
	result *retrieval.Response,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		resp := retrieval.Response{
			URL:        request.URL,
			StatusCode: r.StatusCode,
			Status:     http.StatusText(r.StatusCode),
			Body:       capture.body(r.Body),
			Duration:   time.Since(start),
		}
		if r.Headers != nil {
			resp.Headers = r.Headers.Clone()
		}
		if r.Request != nil && r.Request.URL != nil {
			resp.URL = r.Request.URL.String()
		}
		*result = resp
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (f *Fetcher) copyHeaders(request retrieval.Request, r *colly.Request) {
	if request.Headers == nil {
		return
	}
	for key, values := range request.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
