package deployment

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// LabelSet is a set of labels on an address book entry. The same contract type is deployed
// more than once for a proxy setup, labels tell the records apart.
type LabelSet map[string]struct{}

// NewLabelSet creates a LabelSet with the given labels.
func NewLabelSet(labels ...string) LabelSet {
	s := make(LabelSet, len(labels))
	s.Add(labels...)

	return s
}

// Add inserts one or more labels.
func (s LabelSet) Add(labels ...string) {
	for _, l := range labels {
		s[l] = struct{}{}
	}
}

// Contains reports whether the label is in the set.
func (s LabelSet) Contains(label string) bool {
	_, ok := s[label]

	return ok
}

// List returns the labels sorted.
func (s LabelSet) List() []string {
	return slices.Sorted(maps.Keys(s))
}

// String returns the sorted labels separated by spaces.
func (s LabelSet) String() string {
	return strings.Join(s.List(), " ")
}

// Equal reports whether both sets hold the same labels. A nil set equals an empty one.
func (s LabelSet) Equal(other LabelSet) bool {
	return maps.Equal(s, other)
}

// MarshalJSON encodes the set as a sorted array of strings.
func (s LabelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes an array of strings into the set.
func (s *LabelSet) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	*s = NewLabelSet(labels...)

	return nil
}
