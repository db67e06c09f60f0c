package groupwire

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Client dispatches parameterized requests to a legacy gateway and
// routes each response — whatever shape it arrives in — to exactly one
// of the caller's callbacks. All methods are safe for concurrent use.
//
// Example:
//
//	client, err := groupwire.NewClient(
//	    groupwire.DefaultConfig().WithBaseURL("https://gw.example.com"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Dispatch(ctx, &groupwire.Request{
//	    Path:     "/mail.php",
//	    Method:   http.MethodPost,
//	    Data:     groupwire.Params{"action": "move", "id": 42},
//	    DataType: groupwire.DataTypeJSON,
//	    RequiresToken: true,
//	    OnSuccess: func(payload any, raw []byte) { /* ... */ },
//	    OnError:   func(code, message string) { /* ... */ },
//	})
type Client interface {
	// Dispatch sends one request and routes its outcome. See the
	// concrete documentation on the dispatcher for the full contract.
	Dispatch(ctx context.Context, req *Request) error

	// Get dispatches a GET request built from the arguments.
	Get(ctx context.Context, path string, data Params, dataType DataType, onSuccess SuccessFunc, onError ErrorFunc) error

	// Post dispatches a POST request built from the arguments.
	Post(ctx context.Context, path string, data Params, dataType DataType, onSuccess SuccessFunc, onError ErrorFunc) error

	// Tokens returns the client's anti-forgery token store. Hosts use
	// it to invalidate the token when the gateway session changes.
	Tokens() *TokenStore

	// Close releases the client's resources. Close is safe to call
	// multiple times; a closed client rejects further dispatches.
	Close() error
}

// client is the concrete implementation of the Client interface
type client struct {
	transport   *httpTransport
	config      *Config
	tokens      *TokenStore
	tokenSource TokenSource
	observer    Observer
	mu          sync.RWMutex
	closed      bool
}

// NewClient creates a gateway client from the configuration. A nil
// config is rejected: the gateway base URL has no usable default.
func NewClient(config *Config) (Client, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	transport, err := newHTTPTransport(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	tokens := config.Tokens
	if tokens == nil {
		tokens = NewTokenStore()
	}

	c := &client{
		transport: transport,
		config:    config,
		tokens:    tokens,
		observer:  config.Observer,
	}
	c.tokenSource = config.TokenSource
	if c.tokenSource == nil {
		c.tokenSource = c.fetchToken
	}
	return c, nil
}

// fetchToken is the default token source: POST to the token endpoint,
// no parameters, token is the trimmed raw response body.
func (c *client) fetchToken(ctx context.Context) (string, error) {
	raw, err := c.transport.postRaw(ctx, c.config.TokenPath)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("token endpoint returned an empty body")
	}
	return token, nil
}

// Get dispatches a GET request built from the arguments.
func (c *client) Get(ctx context.Context, path string, data Params, dataType DataType, onSuccess SuccessFunc, onError ErrorFunc) error {
	return c.Dispatch(ctx, &Request{
		Path:      path,
		Method:    http.MethodGet,
		Data:      data,
		DataType:  dataType,
		OnSuccess: onSuccess,
		OnError:   onError,
	})
}

// Post dispatches a POST request built from the arguments.
func (c *client) Post(ctx context.Context, path string, data Params, dataType DataType, onSuccess SuccessFunc, onError ErrorFunc) error {
	return c.Dispatch(ctx, &Request{
		Path:      path,
		Method:    http.MethodPost,
		Data:      data,
		DataType:  dataType,
		OnSuccess: onSuccess,
		OnError:   onError,
	})
}

// Tokens returns the client's token store.
func (c *client) Tokens() *TokenStore {
	return c.tokens
}

// Close closes the client and releases resources
func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.transport.close()
}

// checkClosed checks if the client is closed
func (c *client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	return nil
}
