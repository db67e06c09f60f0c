package groupwire

// DataType declares how a response payload should be interpreted.
// It also selects the request encoding: JSON requests send a JSON
// body, everything else is form-encoded.
type DataType string

const (
	// DataTypeText treats the payload as an opaque string.
	DataTypeText DataType = "text"
	// DataTypeJSON interprets the payload as a JSON document.
	DataTypeJSON DataType = "json"
	// DataTypeXML interprets the payload as an XML document.
	DataTypeXML DataType = "xml"
)

// Kind is the normalized result of interpreting a response payload.
type Kind int

const (
	// KindSuccess means the gateway reported the operation succeeded.
	KindSuccess Kind = iota
	// KindError means the gateway reported a semantic failure.
	KindError
)

// String returns the string representation of the kind
func (k Kind) String() string {
	if k == KindError {
		return "error"
	}
	return "success"
}

// Outcome is the canonical result produced by a response interpreter.
// Exactly one Outcome is produced per payload, regardless of which of
// the gateway's response shapes carried it.
//
// Code and Message are empty when the payload did not carry them; Raw
// always holds the payload verbatim. Payload holds a decoded form where
// one exists (the unmarshaled document for JSON, the payload string for
// text and XML).
type Outcome struct {
	// Kind is the normalized success/error discriminator
	Kind Kind
	// Code is the error or status code reported by the gateway, if any
	Code string
	// Message is the human-readable message reported by the gateway, if any
	Message string
	// Raw is the response payload exactly as received
	Raw []byte
	// Payload is the decoded payload, when the data type has one
	Payload any
}

// Handling is returned by a Handler to declare whether it fully
// processed the outcome. A Handled return short-circuits the resolution
// chain; Unhandled lets dispatch fall through to the next candidate.
type Handling int

const (
	// Unhandled continues the resolution chain.
	Unhandled Handling = iota
	// Handled stops the resolution chain.
	Handled
)

// Handler processes an interpreted outcome. It receives the decoded
// payload and the raw response bytes and reports whether it handled
// the outcome.
type Handler func(payload any, raw []byte) Handling

// CallbackMap routes outcomes to handlers. Keys are the outcome codes
// reported by the gateway, plus the literal keys "success" and
// "default": "success" matches any success outcome whose code has no
// entry, "default" matches any outcome whose code has no entry.
//
// A CallbackMap is read-only during dispatch; it must not be mutated
// while a request is in flight.
type CallbackMap map[string]Handler

const (
	callbackKeyDefault = "default"
	callbackKeySuccess = "success"
)

// lookup resolves the handler for an outcome within a single map,
// trying the outcome code first, then the literal keys.
func (m CallbackMap) lookup(out *Outcome) Handler {
	if m == nil {
		return nil
	}
	if out.Code != "" {
		if h, ok := m[out.Code]; ok {
			return h
		}
	}
	if out.Kind == KindSuccess {
		if h, ok := m[callbackKeySuccess]; ok {
			return h
		}
	}
	return m[callbackKeyDefault]
}

// SuccessFunc is the fallback callback for success outcomes.
type SuccessFunc func(payload any, raw []byte)

// ErrorFunc is the fallback callback for every error path: transport
// failures, parse failures, token acquisition failures, and semantic
// error outcomes that no keyed handler claimed. Code and message are
// empty when the failure did not carry them.
type ErrorFunc func(code, message string)

// Request describes one logical call to the gateway. A Request is
// immutable once dispatched; the single token-refresh retry reuses the
// same descriptor with the acquired token attached at the wire level.
type Request struct {
	// Path is the request path relative to the configured base URL
	Path string
	// Method is the HTTP method, GET or POST
	Method string
	// Data is the request parameter tree
	Data Params
	// DataType selects the response interpreter and request encoding
	DataType DataType
	// RequiresToken marks requests that must carry the anti-forgery token
	RequiresToken bool
	// Callbacks are the handlers pre-registered for this request type
	Callbacks CallbackMap
	// UserCallbacks are the handlers supplied by the calling code
	UserCallbacks CallbackMap
	// OnSuccess is the fallback success callback
	OnSuccess SuccessFunc
	// OnError is the fallback error callback
	OnError ErrorFunc
	// Args is opaque caller state carried alongside the request
	Args any
}
