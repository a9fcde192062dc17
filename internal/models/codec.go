package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "github.com/julianstephens/driftlog/internal/errors"
)

// EncodeDocument serializes a store to its canonical JSON form. Map keys are
// emitted in sorted order, so equal stores always encode to equal bytes.
func EncodeDocument(store EntryStore) ([]byte, error) {
	if store == nil {
		store = EntryStore{}
	}
	return json.Marshal(store)
}

// ParseDocument decodes either a raw entry store or any envelope that wraps
// one under "data" (export, archive, or the legacy {data: ...} record), and
// normalizes the result. Failures wrap ErrParse.
func ParseDocument(payload []byte) (EntryStore, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", apperrors.ErrParse)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrParse, err)
	}

	if top == nil {
		return nil, fmt.Errorf("%w: null payload", apperrors.ErrParse)
	}

	body := trimmed
	if data, ok := top["data"]; ok {
		if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			return nil, fmt.Errorf("%w: envelope has no data", apperrors.ErrParse)
		}
		body = data
	}

	var store EntryStore
	if err := json.Unmarshal(body, &store); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrParse, err)
	}
	if store == nil {
		store = EntryStore{}
	}
	return Normalize(store), nil
}
