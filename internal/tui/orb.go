package tui

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	baseRadius  = 50.0
	maxGrowth   = 1.5
	growthScale = 30.0

	// Radius units per terminal row.
	unitsPerRow = 10.0
)

// Radius grows the orb with the transcript length: 50 for an empty
// transcript, 95 at most.
func Radius(transcript string) float64 {
	n := float64(utf8.RuneCountInString(transcript))
	return baseRadius + math.Min(n/100, maxGrowth)*growthScale
}

// renderOrb draws a disc of the given radius. Cells are twice as tall as
// they are wide, so x distances are halved. While playing, a ring ripples
// outward with phase. maxRows caps the half-height; zero means no cap.
func renderOrb(radius, phase float64, playing bool, maxRows int) string {
	r := radius / unitsPerRow
	if maxRows > 0 && r > float64(maxRows) {
		r = float64(maxRows)
	}

	ripple := 0.0
	extent := r
	if playing {
		ripple = r + 0.8 + (math.Sin(phase)+1)*0.75
		extent = r + 2.5
	}

	half := int(math.Ceil(extent))
	var b strings.Builder
	for y := -half; y <= half; y++ {
		line := make([]rune, 0, 4*half+1)
		for x := -2 * half; x <= 2*half; x++ {
			d := math.Hypot(float64(x)/2, float64(y))
			switch {
			case d <= r*0.55:
				line = append(line, '█')
			case d <= r:
				line = append(line, '▓')
			case playing && math.Abs(d-ripple) < 0.5:
				line = append(line, '░')
			default:
				line = append(line, ' ')
			}
		}
		b.WriteString(string(line))
		if y < half {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
