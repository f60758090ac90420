package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// EnvelopeKey is the field the vendor nests the real payload under
const EnvelopeKey = "resp"

// UnwrapEnvelope returns the value stored under "resp" in a JSON object
func UnwrapEnvelope(body []byte) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, Errorf(KindDeserialization, "unwrap envelope", err)
	}
	inner, ok := top[EnvelopeKey]
	if !ok {
		return nil, Errorf(KindUnexpectedResponseShape, "unwrap envelope", errors.New(`missing "resp" field`))
	}
	return inner, nil
}

// Decode unmarshals raw into v, reporting failures as Deserialization errors
func Decode(op string, raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		// Boolean already reports its own kind
		var werr *Error
		if errors.As(err, &werr) {
			return Errorf(KindDeserialization, op, werr.Err)
		}
		return Errorf(KindDeserialization, op, err)
	}
	return nil
}

// PrettyLines indents raw JSON and splits it into lines for logging. Input
// that is not valid JSON is returned as a single line.
func PrettyLines(raw []byte) []string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return []string{string(raw)}
	}
	return strings.Split(buf.String(), "\n")
}
