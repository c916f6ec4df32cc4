package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/sumoctl/internal/arsdk/command"
	"github.com/danmuck/sumoctl/internal/arsdk/command/jumpingsumo"
)

func TestNewRegistersEveryProject(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	projects := map[string]int{}
	for _, spec := range r.List() {
		projects[strings.SplitN(spec.ID, ".", 2)[0]]++
	}
	if projects["common"] == 0 || projects["jumpingsumo"] == 0 {
		t.Fatalf("missing project specs: %v", projects)
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatalf("expected one shared registry")
	}
}

func TestNameResolvesFeatureHeaders(t *testing.T) {
	name, ok := Default().Name(jumpingsumo.Jump(jumpingsumo.JumpHigh))
	if !ok || name != "jumpingsumo.animations.jump" {
		t.Fatalf("name=%q ok=%v", name, ok)
	}
	if _, ok := Default().Name(command.Feature{Project: 9, Class: 9, Command: 9}); ok {
		t.Fatalf("expected unknown header")
	}
}

func TestRegisteringTwiceFails(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := r.Register(jumpingsumo.Specs()...); !errors.Is(err, command.ErrSpecExists) {
		t.Fatalf("expected ErrSpecExists, got %v", err)
	}
}
