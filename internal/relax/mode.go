package relax

import (
	"fmt"

	"github.com/latticeworks/lgfrelax/internal/lgf"
)

// Mode selects when the elastic correction is applied relative to the
// driver's own position update. It is fixed for the whole run.
type Mode int

const (
	// Disabled applies no correction.
	Disabled Mode = iota
	// PostStep applies the correction after the relaxation step.
	PostStep
	// PreStep applies the correction before the relaxation step and
	// snapshots the uncorrected positions for the driver's bookkeeping.
	PreStep
)

func (m Mode) String() string {
	switch m {
	case Disabled:
		return "disabled"
	case PostStep:
		return "post-step"
	case PreStep:
		return "pre-step"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode validates the integer mode flag from configuration.
func ParseMode(v int) (Mode, error) {
	if v < 0 || v > 2 {
		return Disabled, fmt.Errorf("%w: mode must be 0, 1 or 2, got %d", lgf.ErrConfig, v)
	}
	return Mode(v), nil
}

// DefaultMode is the mode used when configuration leaves the flag
// unset: corrections are on (post-step) whenever an LGF resource is
// available.
func DefaultMode(lgfPresent bool) Mode {
	if lgfPresent {
		return PostStep
	}
	return Disabled
}
