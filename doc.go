// Package groupwire is a Go client for legacy PHP gateway backends
// that answer the same logical outcome in several competing wire
// shapes. It sends parameterized GET/POST requests and normalizes
// every response — XML in its assorted element conventions, JSON in
// its assorted field conventions, or plain text — into one canonical
// success/error outcome, then routes that outcome to exactly one
// caller-supplied callback. Requests that need the gateway's
// anti-forgery token acquire, cache, and attach it transparently.
//
// # Features
//
// The client provides:
//   - One outcome contract over six-plus response shapes, checked in
//     a fixed priority order with no false positives
//   - Transparent CSRF token acquisition with a single refresh-and-
//     retry cycle per request
//   - Layered callback resolution with explicit Handled short-circuit
//   - Bracket-path form encoding of nested parameter trees
//   - Typed error taxonomy usable with errors.Is/errors.As
//   - Pluggable observers: logrus logging and Prometheus metrics ship
//     in the box
//
// # Basic Usage
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//	    "net/http"
//
//	    groupwire "github.com/groupwire/groupwire-go"
//	)
//
//	func main() {
//	    client, err := groupwire.NewClient(
//	        groupwire.DefaultConfig().WithBaseURL("https://gw.example.com"),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer client.Close()
//
//	    err = client.Dispatch(context.Background(), &groupwire.Request{
//	        Path:          "/mail.php",
//	        Method:        http.MethodPost,
//	        Data:          groupwire.Params{"action": "empty_trash"},
//	        DataType:      groupwire.DataTypeXML,
//	        RequiresToken: true,
//	        OnSuccess: func(payload any, raw []byte) {
//	            log.Println("trash emptied")
//	        },
//	        OnError: func(code, message string) {
//	            log.Printf("gateway error %s: %s", code, message)
//	        },
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Callback Resolution
//
// Each interpreted outcome carries an optional code. Resolution tries
// the request-type CallbackMap keyed by that code, then the
// caller-supplied CallbackMap, then falls back to OnSuccess/OnError by
// outcome kind. A keyed handler returning Handled stops the chain; the
// literal keys "default" and "success" catch outcomes whose code has
// no entry of its own.
//
// # Observability
//
// The library itself never logs. Attach an observer for visibility:
//
//	config := groupwire.DefaultConfig().
//	    WithBaseURL("https://gw.example.com").
//	    WithObserver(groupwire.NewCompositeObserver(
//	        groupwire.NewLogObserver(nil),
//	        groupwire.NewMetricsObserver(),
//	    ))
package groupwire
