package decode

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/user/framenav/pkg/ports"
)

// StrideMode selects how the row stride of the output buffer is derived from
// the tight row size.
type StrideMode int

const (
	// StrideTight uses the tight row size with no padding.
	StrideTight StrideMode = iota
	// StridePowerOfTwo rounds the row size up to the next power of two.
	StridePowerOfTwo
	// StrideFourByteAligned rounds the row size up to a multiple of 4.
	StrideFourByteAligned
)

// String returns the configuration name of the stride mode.
func (m StrideMode) String() string {
	switch m {
	case StrideTight:
		return "tight"
	case StridePowerOfTwo:
		return "power-of-two"
	case StrideFourByteAligned:
		return "four-byte-aligned"
	default:
		return "unknown"
	}
}

// ParseStrideMode parses a stride mode name.
func ParseStrideMode(s string) (StrideMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tight":
		return StrideTight, nil
	case "power-of-two", "pow2":
		return StridePowerOfTwo, nil
	case "", "four-byte-aligned", "align4":
		return StrideFourByteAligned, nil
	default:
		return 0, fmt.Errorf("%w: unknown stride mode %q", ports.ErrConfiguration, s)
	}
}

// Stride derives the row stride for a tight row size.
func (m StrideMode) Stride(tight int) (int, error) {
	switch m {
	case StrideTight:
		return tight, nil
	case StridePowerOfTwo:
		return nextPowerOfTwo(tight), nil
	case StrideFourByteAligned:
		return (tight + 3) &^ 3, nil
	default:
		return 0, fmt.Errorf("%w: unknown stride mode %d", ports.ErrConfiguration, int(m))
	}
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
