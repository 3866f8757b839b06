package request

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Amount is a decimal sent either as a JSON string or a JSON number. The
// digits are kept as written so no precision is lost to float64.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("must be a decimal string or number")
	}

	*a = Amount(n)
	return nil
}

func (a Amount) String() string {
	return string(a)
}
