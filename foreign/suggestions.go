package foreign

import "github.com/wippyai/srcbridge/abi"

// Suggestions is a bounded completion list: at most MaxSuggestions entries
// of at most MaxSuggestionLength-1 bytes each.
type Suggestions struct {
	items []string
}

// NewSuggestions returns an empty list.
func NewSuggestions() *Suggestions {
	return &Suggestions{items: make([]string, 0, 8)}
}

// Push appends item, truncated to fit an entry. It returns false and drops
// the item once the list is full.
func (s *Suggestions) Push(item string) bool {
	if len(s.items) >= MaxSuggestions {
		return false
	}
	if len(item) > MaxSuggestionLength-1 {
		item = item[:MaxSuggestionLength-1]
	}
	s.items = append(s.items, item)
	return true
}

// Len returns the number of entries.
func (s *Suggestions) Len() int { return len(s.items) }

// Items returns a copy of the entries.
func (s *Suggestions) Items() []string { return append([]string(nil), s.items...) }

// Store writes the list into obj, which must view SuggestionsLayout.
func (s *Suggestions) Store(obj abi.Object) {
	obj.SetI32("count", int32(len(s.items)))
	buf := make([]byte, len(s.items)*MaxSuggestionLength)
	for i, item := range s.items {
		copy(buf[i*MaxSuggestionLength:], item)
	}
	obj.SetBytes("items", buf)
}

// LoadSuggestions reads a list stored in foreign memory. A count outside
// the list bounds is clamped.
func LoadSuggestions(obj abi.Object) *Suggestions {
	n := int(obj.I32("count"))
	if n < 0 {
		n = 0
	}
	if n > MaxSuggestions {
		n = MaxSuggestions
	}
	raw := obj.Bytes("items")
	s := &Suggestions{items: make([]string, 0, n)}
	for i := 0; i < n; i++ {
		s.items = append(s.items, cstr(raw[i*MaxSuggestionLength:(i+1)*MaxSuggestionLength]))
	}
	return s
}
