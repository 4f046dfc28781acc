package timeframe

import "strings"

// Key identifies one of the fixed trading timeframes.
type Key string

const (
	M1  Key = "1m"
	M5  Key = "5m"
	M15 Key = "15m"
	M30 Key = "30m"
	H1  Key = "1h"
	H4  Key = "4h"
	D1  Key = "1d"
	W1  Key = "1w"
	Mo1 Key = "1M"
)

// Keys lists every timeframe in ascending duration order.
var Keys = []Key{M1, M5, M15, M30, H1, H4, D1, W1, Mo1}

// Definition carries the static properties of a timeframe.
type Definition struct {
	Key             Key
	Seconds         int64
	Label           string
	VoiceSound      string
	TickSound       string
	TransitionSound string
}

// The month prefix is "1Mo" because "1M" and "1m" collide on
// case-insensitive filesystems.
var definitions = map[Key]Definition{
	M1:  {Key: M1, Seconds: 60, Label: "1 Minute", VoiceSound: "1m_voice.wav", TickSound: "1m_tick.wav", TransitionSound: "1m_transition.wav"},
	M5:  {Key: M5, Seconds: 300, Label: "5 Minutes", VoiceSound: "5m_voice.wav", TickSound: "5m_tick.wav", TransitionSound: "5m_transition.wav"},
	M15: {Key: M15, Seconds: 900, Label: "15 Minutes", VoiceSound: "15m_voice.wav", TickSound: "15m_tick.wav", TransitionSound: "15m_transition.wav"},
	M30: {Key: M30, Seconds: 1800, Label: "30 Minutes", VoiceSound: "30m_voice.wav", TickSound: "30m_tick.wav", TransitionSound: "30m_transition.wav"},
	H1:  {Key: H1, Seconds: 3600, Label: "1 Hour", VoiceSound: "1h_voice.wav", TickSound: "1h_tick.wav", TransitionSound: "1h_transition.wav"},
	H4:  {Key: H4, Seconds: 14400, Label: "4 Hours", VoiceSound: "4h_voice.wav", TickSound: "4h_tick.wav", TransitionSound: "4h_transition.wav"},
	D1:  {Key: D1, Seconds: 86400, Label: "1 Day", VoiceSound: "1d_voice.wav", TickSound: "1d_tick.wav", TransitionSound: "1d_transition.wav"},
	W1:  {Key: W1, Seconds: 604800, Label: "1 Week", VoiceSound: "1w_voice.wav", TickSound: "1w_tick.wav", TransitionSound: "1w_transition.wav"},
	Mo1: {Key: Mo1, Seconds: 2592000, Label: "1 Month", VoiceSound: "1Mo_voice.wav", TickSound: "1Mo_tick.wav", TransitionSound: "1Mo_transition.wav"},
}

// Lookup returns the definition for a key.
func Lookup(key Key) (Definition, bool) {
	def, ok := definitions[key]
	return def, ok
}

// Parse validates a raw timeframe string.
func Parse(raw string) (Key, bool) {
	key := Key(raw)
	_, ok := definitions[key]
	return key, ok
}

// ParseFolded parses a timeframe name case-insensitively. Config loaders
// lowercase map keys, which folds "1M" onto the 1-minute key, so the
// month timeframe spells "1mo" here.
func ParseFolded(raw string) (Key, bool) {
	folded := strings.ToLower(raw)
	if folded == "1mo" {
		return Mo1, true
	}
	key := Key(folded)
	_, ok := definitions[key]
	return key, ok
}

// SoundOverride replaces the sound asset names for a timeframe. Empty
// fields leave the current value untouched. Used when persisted settings
// carry user-selected files.
type SoundOverride struct {
	Voice      string
	Tick       string
	Transition string
}

// Table is a per-process copy of the timeframe definitions with any
// user overrides applied. It is built once at startup and read-only after.
type Table struct {
	defs map[Key]Definition
}

// NewTable builds a table from the static definitions plus overrides.
func NewTable(overrides map[Key]SoundOverride) *Table {
	defs := make(map[Key]Definition, len(definitions))
	for key, def := range definitions {
		if ov, ok := overrides[key]; ok {
			if ov.Voice != "" {
				def.VoiceSound = ov.Voice
			}
			if ov.Tick != "" {
				def.TickSound = ov.Tick
			}
			if ov.Transition != "" {
				def.TransitionSound = ov.Transition
			}
		}
		defs[key] = def
	}
	return &Table{defs: defs}
}

// Get returns the effective definition for a key.
func (t *Table) Get(key Key) Definition {
	return t.defs[key]
}
