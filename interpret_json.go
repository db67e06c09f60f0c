package groupwire

import (
	"errors"

	"github.com/tidwall/gjson"
)

// jsonDiscriminators are the fallback fields scanned, in order, when a
// payload matches none of the primary shapes. The first one present
// becomes the outcome code so a caller-supplied callback can claim it.
var jsonDiscriminators = []string{"reason", "status", "cmd"}

// jsonInterpreter normalizes the gateway's JSON response shapes. The
// gateway grew several competing conventions over time; they are
// checked in a fixed priority order, stopping at the first field that
// is present:
//
//  1. "error"        -> error, code from the field, message from
//     "errortxt" when present, the error value otherwise
//  2. boolean "success" -> success/error with no code or message
//  3. "res"          -> success iff "success", otherwise error with
//     message from "errortxt"
//  4. none of those  -> success outcome coded by the first present of
//     "reason", "status", "cmd", feeding the default handler chain
//
// Priority is load-bearing: a payload carrying both "error" and
// "success": true is an error.
type jsonInterpreter struct{}

func (jsonInterpreter) interpret(raw []byte) (*Outcome, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &ParseError{DataType: DataTypeJSON, Err: errors.New("invalid JSON document")}
	}
	doc := gjson.ParseBytes(raw)

	if e := doc.Get("error"); e.Exists() {
		message := e.String()
		if txt := doc.Get("errortxt"); txt.Exists() {
			message = txt.String()
		}
		return &Outcome{
			Kind:    KindError,
			Code:    e.String(),
			Message: message,
			Raw:     raw,
			Payload: doc.Value(),
		}, nil
	}

	if s := doc.Get("success"); s.Type == gjson.True || s.Type == gjson.False {
		kind := KindError
		if s.Bool() {
			kind = KindSuccess
		}
		return &Outcome{Kind: kind, Raw: raw, Payload: doc.Value()}, nil
	}

	if r := doc.Get("res"); r.Exists() {
		if r.String() == "success" {
			return &Outcome{Kind: KindSuccess, Raw: raw, Payload: doc.Value()}, nil
		}
		return &Outcome{
			Kind:    KindError,
			Message: doc.Get("errortxt").String(),
			Raw:     raw,
			Payload: doc.Value(),
		}, nil
	}

	code := ""
	for _, field := range jsonDiscriminators {
		if v := doc.Get(field); v.Exists() {
			code = v.String()
			break
		}
	}
	return &Outcome{Kind: KindSuccess, Code: code, Raw: raw, Payload: doc.Value()}, nil
}
