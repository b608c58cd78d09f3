// Package color derives stable badge colors for wallet accounts.
package color

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/subaccounts/notes-server/internal/domain"
)

// Anonymous is the badge color for callers without a connected account.
const Anonymous = "#9E9E9E"

// ForAccount returns a hex color for account. Spellings of the same address
// that differ only in case map to the same color.
func ForAccount(account string) string {
	account = domain.NormalizeAccount(account)
	if account == domain.AnonymousAccount {
		return Anonymous
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(account)))
	hue := float64(h.Sum32() % 360)

	// Fixed saturation and lightness keep every hue readable on light and dark UIs.
	r, g, b := hslToRGB(hue, 0.45, 0.6)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts h (0-360), s and l (0-1) to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360.0

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r = channel(p, q, h+1.0/3.0)
	g = channel(p, q, h)
	b = channel(p, q, h-1.0/3.0)
	return r, g, b
}

func channel(p, q, t float64) uint8 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}

	v := p
	switch {
	case t < 1.0/6.0:
		v = p + (q-p)*6*t
	case t < 1.0/2.0:
		v = q
	case t < 2.0/3.0:
		v = p + (q-p)*(2.0/3.0-t)*6
	}
	return uint8(v*255 + 0.5)
}
