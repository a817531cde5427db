package protocol

import (
	"errors"
	"fmt"
	"testing"

	"arborcraft.ai/internal/sim/arbor"
	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrBadRequest,
		ErrNotBranch,
		ErrNotRoot,
		ErrUnknownSpecies,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeFor(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("grow 1,2,3: %w", err) }
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{wrap(network.ErrNotBranch), ErrNotBranch},
		{wrap(network.ErrNotRoot), ErrNotRoot},
		{wrap(species.ErrUnknownSpecies), ErrUnknownSpecies},
		{wrap(species.ErrUnknownFamily), ErrUnknownSpecies},
		{fmt.Errorf("%w: bad pos", ErrInvalid), ErrBadRequest},
		{wrap(arbor.ErrOccupied), ErrBadRequest},
		{errors.New("disk full"), ErrInternal},
	}
	for _, c := range cases {
		if got := CodeFor(c.err); got != c.want {
			t.Fatalf("CodeFor(%v)=%q want %q", c.err, got, c.want)
		}
		if !IsKnownCode(CodeFor(c.err)) {
			t.Fatalf("CodeFor(%v) returned unknown code", c.err)
		}
	}
}
