package forward

import (
	"context"
	"sync"
	"testing"

	"github.com/videologyinc/websink-go/pkg/codec"
	"github.com/videologyinc/websink-go/pkg/pad"
	"github.com/videologyinc/websink-go/pkg/track"
	"github.com/videologyinc/websink-go/pkg/wslog"
)

type fakePeers struct{ n int }

func (f fakePeers) Count() int { return f.n }

func newTestForwarder(reg *track.Registry, peers fakePeers, isLive func() bool) (*Forwarder, *sync.WaitGroup) {
	var wg sync.WaitGroup
	return New(reg, peers, isLive, wslog.Default(), context.Background(), &wg), &wg
}

func TestForwardLiveWithNoPeersShortCircuits(t *testing.T) {
	reg := track.NewRegistry()
	f, wg := newTestForwarder(reg, fakePeers{0}, func() bool { return true })

	ok := f.Forward("sink_0", pad.Buffer{Payload: []byte{1, 2, 3}})
	if !ok {
		t.Fatalf("Forward() = false, want true (is_live, no peers)")
	}
	wg.Wait()
}

func TestForwardUnboundPadFails(t *testing.T) {
	reg := track.NewRegistry()
	f, wg := newTestForwarder(reg, fakePeers{1}, func() bool { return false })

	ok := f.Forward("sink_0", pad.Buffer{Payload: []byte{1, 2, 3}})
	if ok {
		t.Fatalf("Forward() = true, want false (no track bound)")
	}
	wg.Wait()
}

func TestForwardDispatchesToBoundTrack(t *testing.T) {
	reg := track.NewRegistry()
	if _, err := reg.Bind("sink_0", codec.H264, codec.Sample); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	f, wg := newTestForwarder(reg, fakePeers{1}, func() bool { return false })

	ok := f.Forward("sink_0", pad.Buffer{Payload: []byte{1, 2, 3}})
	if !ok {
		t.Fatalf("Forward() = false, want true")
	}
	// Wait for the spawned write goroutine to finish so a race detector
	// run observes the write, not just the dispatch.
	wg.Wait()
}

func TestForwardRtpModeDispatch(t *testing.T) {
	reg := track.NewRegistry()
	if _, err := reg.Bind("sink_0", codec.H264, codec.Rtp); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	f, wg := newTestForwarder(reg, fakePeers{1}, func() bool { return false })

	// A minimal valid RTP header (version 2, no padding/extension/csrc).
	rtpPacket := []byte{0x80, 0x60, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0xDE, 0xAD}
	ok := f.Forward("sink_0", pad.Buffer{Payload: rtpPacket})
	if !ok {
		t.Fatalf("Forward() = false, want true")
	}
	wg.Wait()
}

func TestForwardRtpParseFailureLogsAndDrops(t *testing.T) {
	reg := track.NewRegistry()
	if _, err := reg.Bind("sink_0", codec.H264, codec.Rtp); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	f, wg := newTestForwarder(reg, fakePeers{1}, func() bool { return false })

	// Too short to be a valid RTP header.
	ok := f.Forward("sink_0", pad.Buffer{Payload: []byte{0x01}})
	if !ok {
		t.Fatalf("Forward() = false, want true (dispatch itself succeeds; parse failure is async)")
	}
	wg.Wait()
}

func TestForwardDoesNotWriteAfterLifeCtxCancelled(t *testing.T) {
	reg := track.NewRegistry()
	if _, err := reg.Bind("sink_0", codec.H264, codec.Sample); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var wg sync.WaitGroup
	f := New(reg, fakePeers{1}, func() bool { return false }, wslog.Default(), ctx, &wg)

	ok := f.Forward("sink_0", pad.Buffer{Payload: []byte{1, 2, 3}})
	if !ok {
		t.Fatalf("Forward() = false, want true (dispatch still succeeds; the write itself is skipped)")
	}
	wg.Wait()
}
