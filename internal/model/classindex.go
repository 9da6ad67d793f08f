package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// UnknownLabel is returned for any index the mapping does not cover.
const UnknownLabel = "Unknown"

var ErrDecode = errors.New("malformed class index")

// ClassIndex is the inverted training-time label mapping (index -> name).
type ClassIndex struct {
	names map[int]string
}

// LoadClassIndex reads a {"name": index} JSON object from path and inverts it.
func LoadClassIndex(path string) (*ClassIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class index %s: %w", path, err)
	}
	return ParseClassIndex(data)
}

// ParseClassIndex inverts a {"name": index} JSON document. When two names
// share an index the lexically greater name wins so the result is stable.
func ParseClassIndex(data []byte) (*ClassIndex, error) {
	var byName map[string]int
	if err := json.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return NewClassIndex(byName), nil
}

func NewClassIndex(byName map[string]int) *ClassIndex {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	ci := &ClassIndex{names: make(map[int]string, len(byName))}
	for _, n := range names {
		ci.names[byName[n]] = n
	}
	return ci
}

// Lookup maps a class index to its name, or UnknownLabel.
func (c *ClassIndex) Lookup(idx int) string {
	if c == nil {
		return UnknownLabel
	}
	if name, ok := c.names[idx]; ok {
		return name
	}
	return UnknownLabel
}

func (c *ClassIndex) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}
