package groupwire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Dispatch sends a request to the gateway and routes the interpreted
// outcome to exactly one of the request's callbacks.
//
// Steps: if the request requires the anti-forgery token and the store
// is empty, the token is acquired first and the call re-entered exactly
// once with the token attached; the transport then performs the round
// trip; the interpreter selected by DataType reduces the payload to an
// Outcome; and the outcome is resolved against the callback maps per
// the resolution order documented on Request.
//
// Dispatch returns an error only for usage problems detected before
// the wire is touched (closed client, nil or invalid request, cyclic
// parameters) and for the hard conditions the protocol defines (token
// still missing after the single refresh, suppressed handler panics).
// Everything that happens on the wire — transport failures, malformed
// payloads, token acquisition failures, semantic errors — is delivered
// through the request's callbacks and Dispatch returns nil.
func (c *client) Dispatch(ctx context.Context, req *Request) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if req.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidRequest)
	}
	switch req.Method {
	case http.MethodGet, http.MethodPost:
	case "":
		return fmt.Errorf("%w: empty method", ErrInvalidRequest)
	default:
		return fmt.Errorf("%w: method %s", ErrInvalidRequest, req.Method)
	}

	// Cyclic records fail fast, before any token traffic.
	if _, err := flattenParams(req.Data); err != nil {
		return err
	}

	return c.dispatch(ctx, req, false)
}

// dispatch runs one attempt. retried marks the re-entry after a token
// refresh; a second missing-token condition then is a hard error, not
// another refresh.
func (c *client) dispatch(ctx context.Context, req *Request, retried bool) error {
	token := ""
	if req.RequiresToken {
		token = c.tokens.Get()
		if token == "" {
			if retried {
				return ErrTokenUnavailable
			}
			err := c.tokens.Acquire(ctx, c.tokenSource)
			c.observer.OnTokenRefresh(err)
			if err != nil {
				c.invokeError(req, "", err.Error())
				return nil
			}
			return c.dispatch(ctx, req, true)
		}
	}

	raw, err := c.transport.send(ctx, req, token)
	if err != nil {
		var terr *TransportError
		if errors.As(err, &terr) {
			c.invokeError(req, transportCode(terr), transportMessage(terr))
			return nil
		}
		// Encoding or request-construction failure, surfaced to the caller.
		return err
	}

	out, err := interpreterFor(req.DataType).interpret(raw)
	if err != nil {
		c.invokeError(req, "", malformedPayloadMessage)
		return nil
	}
	c.observer.OnOutcome(req.DataType, out.Kind, out.Code)

	return c.resolve(req, out)
}

// resolve walks the callback resolution chain: the request-type map,
// then the caller-supplied map, then the OnSuccess/OnError fallback.
// A keyed handler returning Handled short-circuits the rest; Unhandled
// falls through. Panics from handlers are recovered once here:
// a ClientError routes its message to the error callback, anything
// else re-raises unless RecoverHandlerPanics converts it into an
// ErrHandlerPanic return.
func (c *client) resolve(req *Request, out *Outcome) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if cerr, ok := r.(*ClientError); ok {
			c.invokeError(req, "", cerr.Message)
			err = nil
			return
		}
		if c.config.RecoverHandlerPanics {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			return
		}
		panic(r)
	}()

	for _, m := range []CallbackMap{req.Callbacks, req.UserCallbacks} {
		if h := m.lookup(out); h != nil {
			if h(out.Payload, out.Raw) == Handled {
				return nil
			}
		}
	}

	if out.Kind == KindSuccess {
		if req.OnSuccess != nil {
			req.OnSuccess(out.Payload, out.Raw)
		}
		return nil
	}
	c.invokeError(req, out.Code, out.Message)
	return nil
}

// invokeError calls the fallback error callback when one is set.
func (c *client) invokeError(req *Request, code, message string) {
	if req.OnError != nil {
		req.OnError(code, message)
	}
}

// transportCode renders a transport failure's code for the error
// callback: the numeric status, or empty for network failures.
func transportCode(err *TransportError) string {
	if err.IsNetwork() {
		return ""
	}
	return strconv.Itoa(err.StatusCode)
}

// transportMessage renders a transport failure's message: the raw
// status text for HTTP failures, the underlying error otherwise.
func transportMessage(err *TransportError) string {
	if err.IsNetwork() {
		return err.Err.Error()
	}
	// http.Response.Status is "404 Not Found"; the callback gets the text.
	if i := strings.IndexByte(err.Status, ' '); i >= 0 {
		return err.Status[i+1:]
	}
	return err.Status
}
