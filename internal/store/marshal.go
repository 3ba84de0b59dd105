package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/profilecheck/internal/canon"
)

// marshalEvidence converts evidence to canonical JSON TEXT for storage.
func marshalEvidence(ev map[string]string) (string, error) {
	if ev == nil {
		ev = map[string]string{}
	}
	data, err := canon.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal evidence: %w", err)
	}
	return string(data), nil
}

// unmarshalEvidence parses evidence TEXT. Never returns a nil map.
func unmarshalEvidence(data string) (map[string]string, error) {
	ev := map[string]string{}
	if data == "" {
		return ev, nil
	}
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	return ev, nil
}

// marshalIDs converts fixture ids to a canonical JSON array.
func marshalIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := canon.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal fixture ids: %w", err)
	}
	return string(data), nil
}

func unmarshalIDs(data string) ([]int64, error) {
	ids := []int64{}
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal fixture ids: %w", err)
	}
	return ids, nil
}
