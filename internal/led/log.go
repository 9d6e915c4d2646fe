package led

import "github.com/rs/zerolog"

// LogStrip is a Strip that logs colour changes instead of driving hardware.
type LogStrip struct {
	log    zerolog.Logger
	pixels []Color
	last   Color
	mixed  bool
	wrote  bool
}

// NewLogStrip creates a LogStrip with n LEDs.
func NewLogStrip(n int, log zerolog.Logger) *LogStrip {
	return &LogStrip{log: log, pixels: make([]Color, n)}
}

func (s *LogStrip) SetPixel(index int, r, g, b uint8) {
	if index < 0 || index >= len(s.pixels) {
		return
	}
	s.pixels[index] = Color{r, g, b}
}

func (s *LogStrip) ClearAll() {
	for i := range s.pixels {
		s.pixels[i] = Off
	}
}

// WriteOut logs the strip colour when it changes.
func (s *LogStrip) WriteOut() error {
	col, mixed := s.pixels[0], false
	for _, p := range s.pixels[1:] {
		if p != col {
			mixed = true
			break
		}
	}
	if s.wrote && col == s.last && mixed == s.mixed {
		return nil
	}
	s.wrote, s.last, s.mixed = true, col, mixed
	s.log.Debug().
		Uint8("r", col.R).Uint8("g", col.G).Uint8("b", col.B).
		Bool("mixed", mixed).
		Msg("led")
	return nil
}
