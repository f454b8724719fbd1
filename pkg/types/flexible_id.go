package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexibleID decodes identifiers the gateway sends either as JSON numbers or
// strings and always exposes the string form.
type FlexibleID string

func (f FlexibleID) String() string {
	return string(f)
}

// Int64 parses the identifier as a base-10 integer.
func (f FlexibleID) Int64() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(f)), 10, 64)
}

func (f FlexibleID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(raw))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return err
	}
	*f = FlexibleID(num.String())
	return nil
}
