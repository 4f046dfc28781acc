package timeframe

// Set is the subset of timeframes currently enabled by the user. It is an
// immutable snapshot; the clock engine receives a fresh Set whenever the
// selection changes.
type Set map[Key]bool

// NewSet builds a set from enabled keys.
func NewSet(keys ...Key) Set {
	set := make(Set, len(keys))
	for _, key := range keys {
		set[key] = true
	}
	return set
}

// Active reports whether a timeframe is enabled.
func (s Set) Active(key Key) bool {
	return s[key]
}

// Empty reports whether no timeframe is enabled.
func (s Set) Empty() bool {
	for _, on := range s {
		if on {
			return false
		}
	}
	return true
}
