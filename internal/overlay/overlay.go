package overlay

import (
	"strings"

	"github.com/rs/zerolog"
)

// Mode selects when the on-screen clock is shown.
type Mode string

const (
	// ModeAlways shows the overlay regardless of the foreground window.
	ModeAlways Mode = "always"
	// ModeCustom shows the overlay only over configured windows.
	ModeCustom Mode = "custom"
)

// Surface is the presentation side of the overlay clock. Implementations
// live in the UI layer; Visible lets the policy apply show/hide
// idempotently.
type Surface interface {
	SetTime(text string)
	Show()
	Hide()
	Visible() bool
}

// Overrides are transient UI states that force the overlay visible, such
// as an open color picker or an in-progress drag.
type Overrides struct {
	SelectingColor bool
	Dragging       bool
}

// Policy decides overlay visibility from configuration and foreground
// window context.
type Policy struct {
	Enabled bool
	Mode    Mode
	Windows []string
}

// Visible reports whether the overlay should be shown given the foreground
// window title and override flags.
func (p Policy) Visible(foregroundTitle string, ov Overrides) bool {
	if !p.Enabled {
		return false
	}
	if ov.SelectingColor || ov.Dragging {
		return true
	}
	if p.Mode == ModeAlways {
		return true
	}
	title := strings.ToLower(foregroundTitle)
	for _, window := range p.Windows {
		if window == "" {
			continue
		}
		if strings.Contains(title, strings.ToLower(window)) {
			return true
		}
	}
	return false
}

// Apply moves the surface to the desired visibility. No-op when already
// in the target state, so it is safe to call on every clock tick.
func Apply(surface Surface, visible bool) {
	if surface == nil {
		return
	}
	if visible && !surface.Visible() {
		surface.Show()
	} else if !visible && surface.Visible() {
		surface.Hide()
	}
}

// LogSurface is a headless overlay that mirrors state changes into the
// log stream.
type LogSurface struct {
	logger  zerolog.Logger
	visible bool
}

// NewLogSurface constructs a logging surface.
func NewLogSurface(logger zerolog.Logger) *LogSurface {
	return &LogSurface{logger: logger.With().Str("component", "overlay").Logger()}
}

func (s *LogSurface) SetTime(text string) {}

func (s *LogSurface) Show() {
	s.visible = true
	s.logger.Debug().Msg("overlay shown")
}

func (s *LogSurface) Hide() {
	s.visible = false
	s.logger.Debug().Msg("overlay hidden")
}

func (s *LogSurface) Visible() bool {
	return s.visible
}

var _ Surface = (*LogSurface)(nil)
