package wire

import (
	"encoding/json"
	"fmt"
)

// Boolean is a flag the vendor expects as the literal strings "True" or "False"
type Boolean bool

const (
	True  Boolean = true
	False Boolean = false
)

// FromBool converts a native bool
func FromBool(b bool) Boolean {
	return Boolean(b)
}

// Bool returns the native value
func (b Boolean) Bool() bool {
	return bool(b)
}

func (b Boolean) String() string {
	if b {
		return "True"
	}
	return "False"
}

// ParseBoolean accepts only "True" and "False"
func ParseBoolean(s string) (Boolean, error) {
	switch s {
	case "True":
		return True, nil
	case "False":
		return False, nil
	default:
		return False, Errorf(KindDeserialization, "parse boolean", fmt.Errorf("invalid literal %q", s))
	}
}

func (b Boolean) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Boolean) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return Errorf(KindDeserialization, "parse boolean", fmt.Errorf("expected string literal, got %s", data))
	}
	v, err := ParseBoolean(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}
