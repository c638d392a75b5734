package dto

import (
	"bytes"
	"encoding/json"
)

// Amount is a decimal carried either as a JSON number or as a quoted string.
// The raw text is kept unparsed so validation reports the caller's input.
type Amount string

// UnmarshalJSON implements json.Unmarshaler. Any token other than a string
// is kept verbatim, so booleans and objects fail numeric validation later.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		*a = Amount(b)
	}
	return nil
}

// String returns the raw text.
func (a Amount) String() string {
	return string(a)
}
