package atmosphere

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects an atmospheric model.
type Kind string

const (
	KindISA         Kind = "isa"
	KindExtendedISA Kind = "extendedisa"
)

// ErrUnknownModel is returned, together with a usable ISA model, when a
// Kind is not recognised.
var ErrUnknownModel = errors.New("unknown atmospheric model, using ISA")

// ParseKind normalises a persisted model name. Unrecognised names are kept
// verbatim so ForKind can report them.
func ParseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// LaunchSite carries the base conditions used by the extended ISA.
type LaunchSite struct {
	Altitude    float64
	Temperature float64
	Pressure    float64
}

// ForKind maps a Kind onto a model. An empty kind means ISA. Unknown kinds
// return the ISA model and an error wrapping ErrUnknownModel, so callers can
// warn and carry on.
func ForKind(kind Kind, site LaunchSite) (Model, error) {
	switch kind {
	case KindISA, "":
		return NewISA(), nil
	case KindExtendedISA:
		return NewExtendedISA(site.Altitude, site.Temperature, site.Pressure), nil
	default:
		return NewISA(), fmt.Errorf("%w: %q", ErrUnknownModel, string(kind))
	}
}
