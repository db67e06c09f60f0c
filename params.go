package groupwire

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// Params is a request parameter tree: string keys mapping to scalar
// values or nested Params. The tree is flattened into the gateway's
// bracket-path form encoding, or sent verbatim as a JSON body for
// DataTypeJSON requests.
//
// A Params value must be a tree. A record that reaches itself fails
// fast with ErrCyclicParams before any traversal; this is checked at
// dispatch time, not by mutation guards.
//
// Example:
//
//	groupwire.Params{
//	    "action": "move",
//	    "target": groupwire.Params{"folder": "archive", "year": 2024},
//	}
//
// flattens to action=move, target[folder]=archive, target[year]=2024.
type Params map[string]any

// pair is one flattened name/value entry. Order matters for
// reproducibility, so flattening returns a slice rather than url.Values.
type pair struct {
	key   string
	value string
}

// flattenParams walks the tree and emits (pathKey, value) pairs.
// Nested records append each child key as parent[child]; top-level keys
// carry no bracket prefix. Sibling keys are emitted in sorted order so
// the encoding is deterministic. Bracket characters inside keys are not
// escaped; keys containing them produce ambiguous paths.
func flattenParams(p Params) ([]pair, error) {
	if p == nil {
		return nil, nil
	}
	seen := map[uintptr]bool{}
	return flattenInto(nil, "", p, seen)
}

func flattenInto(out []pair, prefix string, p Params, seen map[uintptr]bool) ([]pair, error) {
	ptr := reflect.ValueOf(p).Pointer()
	if seen[ptr] {
		return nil, fmt.Errorf("%w at %q", ErrCyclicParams, prefix)
	}
	seen[ptr] = true
	defer delete(seen, ptr)

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "[" + k + "]"
		}
		var err error
		switch v := p[k].(type) {
		case Params:
			out, err = flattenInto(out, path, v, seen)
		case map[string]any:
			out, err = flattenInto(out, path, Params(v), seen)
		default:
			out = append(out, pair{key: path, value: scalarString(v)})
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// scalarString renders a leaf value; nil normalizes to the empty string.
func scalarString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// encodePairs renders flattened pairs as a form/query string, keeping
// pair order. Bracket characters in path keys survive percent-encoding
// unchanged on the gateway side, which decodes them positionally.
func encodePairs(pairs []pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}
