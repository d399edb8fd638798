package netspec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Labels is a list of domain values. JSON documents may write numeric or
// boolean labels unquoted; they are kept in their literal form.
type Labels []string

func (l *Labels) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Labels, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return err
			}
			out = append(out, s)
			continue
		}
		switch {
		case bytes.Equal(item, []byte("true")), bytes.Equal(item, []byte("false")):
		case json.Valid(item) && (item[0] == '-' || (item[0] >= '0' && item[0] <= '9')):
		default:
			return fmt.Errorf("label %s is not a string, number or boolean", item)
		}
		out = append(out, string(item))
	}
	*l = out
	return nil
}
