package builder

import (
	"bytes"
	"reflect"
	"sync"
	"testing"

	"github.com/danmuck/sumoctl/internal/arsdk/command"
	"github.com/danmuck/sumoctl/internal/arsdk/command/jumpingsumo"
	"github.com/danmuck/sumoctl/internal/arsdk/frame"
	"github.com/danmuck/sumoctl/internal/testutil/testlog"
)

var jumpFrameBytes = []byte{
	0x04, 0x0b, 0x01, 0x0f, 0x00, 0x00, 0x00, 0x03, 0x02, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
}

func TestSendTableRawIDs(t *testing.T) {
	testlog.Start(t)
	want := map[SendBuffer]frame.BufferID{
		SendPong:      1,
		SendNoAck:     10,
		SendAck:       11,
		SendEmergency: 12,
		SendVideoAck:  13,
	}
	roles := SendBuffers()
	if len(roles) != len(want) {
		t.Fatalf("send roles=%d want=%d", len(roles), len(want))
	}
	seen := make(map[frame.BufferID]SendBuffer)
	for _, r := range roles {
		got := r.BufferID()
		if got != want[r] {
			t.Fatalf("%s: got=%d want=%d", r, got, want[r])
		}
		if prev, dup := seen[got]; dup {
			t.Fatalf("send roles %s and %s share id %d", prev, r, got)
		}
		seen[got] = r
	}
}

func TestReceiveTableRawIDs(t *testing.T) {
	testlog.Start(t)
	want := map[ReceiveBuffer]frame.BufferID{
		ReceivePing:    0,
		ReceiveVideo:   125,
		ReceiveEvent:   126,
		ReceiveNavdata: 127,
		ReceiveAck:     139,
	}
	roles := ReceiveBuffers()
	if len(roles) != len(want) {
		t.Fatalf("receive roles=%d want=%d", len(roles), len(want))
	}
	seen := make(map[frame.BufferID]ReceiveBuffer)
	for _, r := range roles {
		got := r.BufferID()
		if got != want[r] {
			t.Fatalf("%s: got=%d want=%d", r, got, want[r])
		}
		if prev, dup := seen[got]; dup {
			t.Fatalf("receive roles %s and %s share id %d", prev, r, got)
		}
		seen[got] = r
	}
}

func TestInvalidRoleMapsToZero(t *testing.T) {
	if SendBuffer(200).Valid() || SendBuffer(200).BufferID() != 0 {
		t.Fatalf("out of range send role should be invalid")
	}
	if ReceiveBuffer(200).Valid() || ReceiveBuffer(200).BufferID() != 0 {
		t.Fatalf("out of range receive role should be invalid")
	}
}

func TestParseRoles(t *testing.T) {
	s, err := ParseSendBuffer(" Emergency ")
	if err != nil || s != SendEmergency {
		t.Fatalf("parse send: %v %v", s, err)
	}
	r, err := ParseReceiveBuffer("navdata")
	if err != nil || r != ReceiveNavdata {
		t.Fatalf("parse receive: %v %v", r, err)
	}
	if _, err := ParseSendBuffer("navdata"); err == nil {
		t.Fatalf("navdata is not a send role")
	}
	if _, err := ParseReceiveBuffer("emergency"); err == nil {
		t.Fatalf("emergency is not a receive role")
	}
}

func TestDirectChainIsLossless(t *testing.T) {
	testlog.Start(t)
	feat := jumpingsumo.PCMD(true, 50, -20)
	types := []frame.Type{frame.TypeAck, frame.TypeData, frame.TypeLowLatency, frame.TypeDataWithAck}
	ids := []frame.BufferID{0, 11, 42, 139, 255}
	for _, typ := range types {
		for _, id := range ids {
			for _, seq := range []uint8{0, 1, 255} {
				f := New().FrameType(typ).BufferID(id).Feature(seq, feat)
				if f.Type != typ || f.BufferID != id || f.Sequence != seq {
					t.Fatalf("fields mismatch: got=%+v want type=%s buffer=%d seq=%d", f, typ, id, seq)
				}
				if f.Feature == nil || !f.Feature.Equal(feat) {
					t.Fatalf("feature mismatch: %+v", f.Feature)
				}
			}
		}
	}
}

func TestSendAckMatchesDirectBuffer(t *testing.T) {
	testlog.Start(t)
	feat := jumpingsumo.Jump(jumpingsumo.JumpHigh)
	viaRole := New().FrameType(frame.TypeDataWithAck).Send(SendAck).Feature(7, feat)
	direct := New().FrameType(frame.TypeDataWithAck).BufferID(11).Feature(7, feat)
	if viaRole.BufferID != 11 {
		t.Fatalf("send ack buffer=%d", viaRole.BufferID)
	}
	if !viaRole.Equal(direct) {
		t.Fatalf("role frame %+v differs from direct %+v", viaRole, direct)
	}
}

func TestReceiveAckDiffersFromSendAck(t *testing.T) {
	testlog.Start(t)
	feat := jumpingsumo.Jump(jumpingsumo.JumpLong)
	recv := New().FrameType(frame.TypeDataWithAck).Receive(ReceiveAck).Feature(1, feat)
	send := New().FrameType(frame.TypeDataWithAck).Send(SendAck).Feature(1, feat)
	if recv.BufferID != 139 {
		t.Fatalf("receive ack buffer=%d", recv.BufferID)
	}
	if recv.BufferID == send.BufferID {
		t.Fatalf("send and receive ack must use different buffers")
	}
}

func TestJumpFrameEncoding(t *testing.T) {
	testlog.Start(t)
	f := New().
		FrameType(frame.TypeDataWithAck).
		Send(SendAck).
		Feature(1, jumpingsumo.Jump(jumpingsumo.JumpLong))

	got, err := frame.Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(got, jumpFrameBytes) {
		t.Fatalf("encoding mismatch:\n got=% x\nwant=% x", got, jumpFrameBytes)
	}
	if l := int(got[3]) | int(got[4])<<8 | int(got[5])<<16 | int(got[6])<<24; l != len(jumpFrameBytes) {
		t.Fatalf("length field=%d want=%d", l, len(jumpFrameBytes))
	}

	decoded, err := frame.Decode(jumpFrameBytes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(f) {
		t.Fatalf("decoded %+v differs from built %+v", decoded, f)
	}
	again, err := frame.Encode(decoded)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(again, jumpFrameBytes) {
		t.Fatalf("round trip mismatch: % x", again)
	}
}

// Out-of-order chains such as New().BufferID(11) or
// New().FrameType(t).Feature(1, f) do not compile. The method sets below pin
// that down so a new method cannot silently open a shortcut.
func TestStageMethodSets(t *testing.T) {
	cases := []struct {
		stage any
		want  []string
	}{
		{Start{}, []string{"FrameType", "String"}},
		{TypeSet{}, []string{"BufferID", "Receive", "Send", "String"}},
		{BufferSet{}, []string{"Feature", "String"}},
		{SendReady{}, []string{"Feature", "String"}},
		{ReceiveReady{}, []string{"Feature", "String"}},
	}
	for _, tc := range cases {
		typ := reflect.TypeOf(tc.stage)
		var got []string
		for i := 0; i < typ.NumMethod(); i++ {
			got = append(got, typ.Method(i).Name)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s methods=%v want=%v", typ.Name(), got, tc.want)
		}
		if _, ok := tc.stage.(Stage); !ok {
			t.Fatalf("%s does not implement Stage", typ.Name())
		}
	}

	var _ interface{ FrameType(frame.Type) TypeSet } = Start{}
	var _ interface {
		BufferID(frame.BufferID) BufferSet
		Send(SendBuffer) SendReady
		Receive(ReceiveBuffer) ReceiveReady
	} = TypeSet{}
	var _ interface {
		Feature(uint8, command.Feature) frame.Frame
	} = SendReady{}
}

func expectMisuse(t *testing.T, reason string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic (%s)", reason)
		}
		err, ok := r.(*MisuseError)
		if !ok {
			t.Fatalf("expected *MisuseError, got %T: %v", r, r)
		}
		if err.Reason != reason {
			t.Fatalf("reason=%q want=%q", err.Reason, reason)
		}
	}()
	fn()
}

func TestReusedStagePanics(t *testing.T) {
	testlog.Start(t)
	start := New()
	typed := start.FrameType(frame.TypeData)
	expectMisuse(t, "stage already consumed", func() { start.FrameType(frame.TypeAck) })

	_ = typed.Send(SendNoAck)
	expectMisuse(t, "stage already consumed", func() { typed.Receive(ReceiveEvent) })

	ready := New().FrameType(frame.TypeData).BufferID(10)
	_ = ready.Feature(1, jumpingsumo.JumpLoad())
	expectMisuse(t, "stage already consumed", func() { ready.Feature(2, jumpingsumo.JumpLoad()) })

	copied := New().FrameType(frame.TypeData)
	alias := copied
	_ = alias.BufferID(10)
	expectMisuse(t, "stage already consumed", func() { copied.BufferID(11) })
}

func TestZeroValueStagePanics(t *testing.T) {
	testlog.Start(t)
	reason := "stage was not produced by builder.New"
	expectMisuse(t, reason, func() { Start{}.FrameType(frame.TypeData) })
	expectMisuse(t, reason, func() { TypeSet{}.Send(SendAck) })
	expectMisuse(t, reason, func() { BufferSet{}.Feature(0, jumpingsumo.JumpStop()) })
	expectMisuse(t, reason, func() { ReceiveReady{}.Feature(0, jumpingsumo.JumpStop()) })
}

func TestTracedChainRecordsEveryStep(t *testing.T) {
	testlog.Start(t)
	var trail Trail
	f := NewTraced(&trail).
		FrameType(frame.TypeDataWithAck).
		Send(SendAck).
		Feature(1, jumpingsumo.Jump(jumpingsumo.JumpLong))

	steps := trail.Steps()
	if len(steps) != 3 {
		t.Fatalf("steps=%d want=3", len(steps))
	}
	wantOps := []string{"FrameType", "Send", "Feature"}
	wantFrom := []string{"Start", "TypeSet{type=data_with_ack}", "SendReady{type=data_with_ack role=ack buffer=11}"}
	for i, step := range steps {
		if step.Op != wantOps[i] || step.From != wantFrom[i] {
			t.Fatalf("step %d = %+v", i, step)
		}
	}
	if steps[2].To != nil || steps[2].Frame == nil || !steps[2].Frame.Equal(f) {
		t.Fatalf("terminal step should carry the frame: %+v", steps[2])
	}
	if _, ok := steps[0].To.(TypeSet); !ok {
		t.Fatalf("first step should produce TypeSet, got %T", steps[0].To)
	}
}

func TestObserverOnlySeesTracedChain(t *testing.T) {
	calls := 0
	obs := ObserverFunc(func(Transition) { calls++ })
	_ = NewTraced(obs).FrameType(frame.TypeData).BufferID(10).Feature(0, jumpingsumo.JumpLoad())
	_ = New().FrameType(frame.TypeData).BufferID(10).Feature(0, jumpingsumo.JumpLoad())
	if calls != 3 {
		t.Fatalf("observer calls=%d want=3", calls)
	}
}

func TestIndependentChainsRunConcurrently(t *testing.T) {
	testlog.Start(t)
	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(seq uint8) {
			defer wg.Done()
			f := New().FrameType(frame.TypeData).Send(SendNoAck).Feature(seq, jumpingsumo.PCMD(true, int8(seq%100), 0))
			if f.Sequence != seq || f.BufferID != frame.BufferCDNonAck {
				errs <- f.Type.String()
			}
		}(uint8(i))
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatalf("concurrent chain produced wrong frame: %s", e)
	}
}
