package protocol

import (
	"errors"

	"arborcraft.ai/internal/sim/arbor"
	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
)

const (
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrNotBranch      = "E_NOT_BRANCH"
	ErrNotRoot        = "E_NOT_ROOT"
	ErrUnknownSpecies = "E_UNKNOWN_SPECIES"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:     {},
	ErrNotBranch:      {},
	ErrNotRoot:        {},
	ErrUnknownSpecies: {},
	ErrInternal:       {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// ErrInvalid marks a request the server refused before running it.
var ErrInvalid = errors.New("invalid request")

// CodeFor maps an engine or validation error onto a wire error code.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, network.ErrNotBranch):
		return ErrNotBranch
	case errors.Is(err, network.ErrNotRoot):
		return ErrNotRoot
	case errors.Is(err, species.ErrUnknownSpecies), errors.Is(err, species.ErrUnknownFamily):
		return ErrUnknownSpecies
	case errors.Is(err, ErrInvalid), errors.Is(err, arbor.ErrOccupied):
		return ErrBadRequest
	default:
		return ErrInternal
	}
}
