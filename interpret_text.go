package groupwire

// interpreter reduces a raw response payload to one canonical Outcome.
// Interpreters never fail on structurally valid input; the returned
// error is always a *ParseError for payloads that do not parse at all.
type interpreter interface {
	interpret(raw []byte) (*Outcome, error)
}

// interpreterFor selects the interpreter for a data type. Unknown data
// types fall back to text, the shape with no structural assumptions.
func interpreterFor(dt DataType) interpreter {
	switch dt {
	case DataTypeJSON:
		return jsonInterpreter{}
	case DataTypeXML:
		return xmlInterpreter{}
	default:
		return textInterpreter{}
	}
}

// textInterpreter handles plain-text responses. Text carries no error
// channel: the only signal is the literal payload, so every payload is
// a success and rejection is left to the caller's own handler.
type textInterpreter struct{}

func (textInterpreter) interpret(raw []byte) (*Outcome, error) {
	return &Outcome{
		Kind:    KindSuccess,
		Raw:     raw,
		Payload: string(raw),
	}, nil
}
