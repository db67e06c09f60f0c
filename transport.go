package groupwire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"

	userAgent = "groupwire-go/1.0.0"
)

// httpTransport performs one HTTP round trip per call. It owns the
// connection pool and knows how to encode a Request onto the wire:
// GET parameters ride the query string, POST parameters the body, and
// the anti-forgery token a fixed header. Everything above a round trip
// (token refresh, interpretation, callback routing) lives in the
// dispatcher.
type httpTransport struct {
	client   *http.Client
	config   *Config
	baseURL  *url.URL
	observer Observer
}

// newHTTPTransport creates the transport from a validated config.
func newHTTPTransport(config *Config) (*httpTransport, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base URL must have a scheme and host")
	}

	transport := &http.Transport{
		MaxIdleConns:        config.TransportConfig.MaxIdleConns,
		MaxConnsPerHost:     config.TransportConfig.MaxConnsPerHost,
		IdleConnTimeout:     config.TransportConfig.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &httpTransport{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		config:   config,
		baseURL:  baseURL,
		observer: config.Observer,
	}, nil
}

// send performs the round trip for a request descriptor. token is
// attached under TokenHeader when non-empty. It returns the raw
// success payload; any non-2xx status or network failure comes back
// as a *TransportError.
func (t *httpTransport) send(ctx context.Context, req *Request, token string) ([]byte, error) {
	t.observer.OnRequestStart(req.Method, req.Path)
	start := time.Now()

	raw, err := t.roundTrip(ctx, req, token)

	t.observer.OnRequestEnd(req.Method, req.Path, time.Since(start), err)
	return raw, err
}

func (t *httpTransport) roundTrip(ctx context.Context, req *Request, token string) ([]byte, error) {
	target := t.resolve(req.Path)

	var bodyReader io.Reader
	contentType := ""

	switch {
	case req.Method == http.MethodGet:
		pairs, err := flattenParams(req.Data)
		if err != nil {
			return nil, err
		}
		if q := encodePairs(pairs); q != "" {
			if target.RawQuery != "" {
				target.RawQuery += "&" + q
			} else {
				target.RawQuery = q
			}
		}

	case req.DataType == DataTypeJSON:
		data, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = contentTypeJSON

	default:
		pairs, err := flattenParams(req.Data)
		if err != nil {
			return nil, err
		}
		if len(pairs) > 0 {
			bodyReader = bytes.NewReader([]byte(encodePairs(pairs)))
			contentType = contentTypeForm
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	for key, value := range t.config.Headers {
		httpReq.Header.Set(key, value)
	}
	if token != "" {
		httpReq.Header.Set(TokenHeader, token)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       respBody,
		}
	}
	return respBody, nil
}

// postRaw posts to a path with no parameters and returns the raw body.
// The token endpoint uses this.
func (t *httpTransport) postRaw(ctx context.Context, path string) ([]byte, error) {
	req := &Request{Path: path, Method: http.MethodPost, DataType: DataTypeText}
	return t.send(ctx, req, "")
}

// resolve joins a request path onto the base URL, keeping any query
// string the path carries.
func (t *httpTransport) resolve(path string) *url.URL {
	ref, err := url.Parse(path)
	if err != nil {
		ref = &url.URL{Path: path}
	}
	return t.baseURL.ResolveReference(ref)
}

// close releases idle connections.
func (t *httpTransport) close() error {
	t.client.CloseIdleConnections()
	return nil
}
