package command

import (
	"errors"
	"testing"
)

func TestFeatureEncodeDecode(t *testing.T) {
	in := Feature{
		Project: ProjectJumpingSumo,
		Class:   2,
		Command: 0x0103,
		Args:    new(ArgWriter).U8(1).I8(-5).U16(0xbeef).U32(7).I32(-2).F32(1.5).String("sumo").Bytes(),
	}
	b := in.Encode()
	if b[0] != 3 || b[1] != 2 || b[2] != 0x03 || b[3] != 0x01 {
		t.Fatalf("unexpected header % x", b[:4])
	}
	out, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("mismatch: %+v vs %+v", out, in)
	}

	r := NewArgReader(out.Args)
	if v, _ := r.U8(); v != 1 {
		t.Fatalf("u8=%d", v)
	}
	if v, _ := r.I8(); v != -5 {
		t.Fatalf("i8=%d", v)
	}
	if v, _ := r.U16(); v != 0xbeef {
		t.Fatalf("u16=%x", v)
	}
	if v, _ := r.U32(); v != 7 {
		t.Fatalf("u32=%d", v)
	}
	if v, _ := r.I32(); v != -2 {
		t.Fatalf("i32=%d", v)
	}
	if v, _ := r.F32(); v != 1.5 {
		t.Fatalf("f32=%v", v)
	}
	if v, err := r.String(); err != nil || v != "sumo" {
		t.Fatalf("string=%q err=%v", v, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("remaining=%d", r.Remaining())
	}
	if _, err := r.U8(); !errors.Is(err, ErrShortArg) {
		t.Fatalf("expected ErrShortArg, got %v", err)
	}
}

func TestDecodeShortFeature(t *testing.T) {
	if _, err := Decode([]byte{3, 2, 3}); !errors.Is(err, ErrShortFeature) {
		t.Fatalf("expected ErrShortFeature, got %v", err)
	}
}

func TestUnterminatedString(t *testing.T) {
	r := NewArgReader([]byte("abc"))
	if _, err := r.String(); !errors.Is(err, ErrUnterminatedArg) {
		t.Fatalf("expected ErrUnterminatedArg, got %v", err)
	}
}

func TestFeatureString(t *testing.T) {
	f := Feature{Project: ProjectJumpingSumo, Class: 2, Command: 3}
	if f.String() != "jumpingsumo.2.3" {
		t.Fatalf("string=%q", f.String())
	}
	if Project(42).String() != "project(42)" {
		t.Fatalf("unknown project string=%q", Project(42).String())
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	spec := Spec{
		ID: "test.class.cmd", Description: "test command",
		Project: ProjectCommon, Class: 1, Command: 2,
		Build: func(p Params) (Feature, error) {
			n, err := p.Int("n", 3, 0, 10)
			if err != nil {
				return Feature{}, err
			}
			return Feature{Project: ProjectCommon, Class: 1, Command: 2, Args: new(ArgWriter).U8(uint8(n)).Bytes()}, nil
		},
	}
	if err := r.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(spec); !errors.Is(err, ErrSpecExists) {
		t.Fatalf("expected ErrSpecExists, got %v", err)
	}
	if err := r.Register(Spec{ID: "Bad ID", Description: "x", Build: spec.Build}); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
	if err := r.Register(Spec{ID: "no.builder", Description: "x"}); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec for missing builder, got %v", err)
	}

	f, err := r.Build("test.class.cmd", nil)
	if err != nil || len(f.Args) != 1 || f.Args[0] != 3 {
		t.Fatalf("default build: %+v %v", f, err)
	}
	if _, err := r.Build("test.class.cmd", Params{"n": "11"}); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
	if _, err := r.Build("missing", nil); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if name, ok := r.Name(f); !ok || name != "test.class.cmd" {
		t.Fatalf("name=%q ok=%v", name, ok)
	}
	if list := r.List(); len(list) != 1 || list[0].ID != "test.class.cmd" {
		t.Fatalf("list=%+v", list)
	}
}

func TestRegisterBatchIsAllOrNothing(t *testing.T) {
	r := NewRegistry()
	build := func(Params) (Feature, error) { return Feature{}, nil }
	good := Spec{ID: "batch.a.one", Description: "first", Build: build}
	bad := Spec{ID: "Bad ID", Description: "second", Build: build}
	if err := r.Register(good, bad); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
	if _, ok := r.Resolve(good.ID); ok {
		t.Fatalf("valid spec registered from a failed batch")
	}
	if err := r.Register(good, good); !errors.Is(err, ErrSpecExists) {
		t.Fatalf("expected ErrSpecExists for repeated id, got %v", err)
	}
	if len(r.List()) != 0 {
		t.Fatalf("registry not empty after failed batches: %+v", r.List())
	}
	if err := r.Register(good); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestParamsEnum(t *testing.T) {
	p := Params{"type": "HIGH"}
	v, err := p.Enum("type", 0, "long", "high")
	if err != nil || v != 1 {
		t.Fatalf("enum=%d err=%v", v, err)
	}
	if _, err := (Params{"type": "sideways"}).Enum("type", 0, "long", "high"); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
}
