package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies an entry or sub-entry. Older documents stored numeric
// millisecond ids, so unmarshalling accepts JSON numbers as well as strings.
type ID string

// NewID returns a fresh random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}
