package collyfetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// colly post-processes bodies before OnResponse sees them: it gunzips anything
// whose Content-Type mentions gzip and transcodes non-UTF-8 charsets. Fetched
// files must be stored exactly as served, so the transport records the bytes
// colly reads and the fetcher returns those instead.

type rawCaptureKey struct{}

// rawCapture holds the bytes of the last response read for one fetch.
// usable is false when colly itself will decode a Content-Encoding that Go's
// transport left alone, since the recorded bytes are then still encoded.
type rawCapture struct {
	buf    bytes.Buffer
	usable bool
}

func withRawCapture(ctx context.Context, c *rawCapture) context.Context {
	return context.WithValue(ctx, rawCaptureKey{}, c)
}

// body returns the served bytes, or fallback when none were recorded.
func (c *rawCapture) body(fallback []byte) []byte {
	if c == nil || !c.usable {
		return append([]byte(nil), fallback...)
	}
	return bytes.Clone(c.buf.Bytes())
}

type rawBodyTransport struct {
	base http.RoundTripper
}

func (t *rawBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	// Go's transport already decoded (and set Uncompressed) any gzip it asked for.
	// Without a Content-Encoding the body is the file itself.
	if !resp.Uncompressed && resp.Header.Get("Content-Encoding") == "" {
		resp.Uncompressed = true
	}
	if c, ok := req.Context().Value(rawCaptureKey{}).(*rawCapture); ok {
		// Redirect hops pass through here too; only the final response counts.
		c.buf.Reset()
		c.usable = resp.Uncompressed
		resp.Body = teeBody{Reader: io.TeeReader(resp.Body, &c.buf), Closer: resp.Body}
	}
	return resp, nil
}

type teeBody struct {
	io.Reader
	io.Closer
}
