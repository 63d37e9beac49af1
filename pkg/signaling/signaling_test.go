package signaling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/videologyinc/websink-go/pkg/codec"
	"github.com/videologyinc/websink-go/pkg/sinkerr"
	"github.com/videologyinc/websink-go/pkg/track"
	"github.com/videologyinc/websink-go/pkg/wslog"
)

func TestHandleOfferFailsNotReadyWithoutTracks(t *testing.T) {
	var wg sync.WaitGroup
	reg := New("", track.NewRegistry(), wslog.Default(), context.Background(), &wg)
	_, err := reg.HandleOffer(context.Background(), webrtc.SessionDescription{})
	if !errors.Is(err, sinkerr.ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
}

// buildOffer constructs a throwaway peer connection with one recvonly
// video transceiver and returns a complete (post-ICE-gathering) offer,
// mirroring how a real browser client builds its initial offer.
func buildOffer(t *testing.T) webrtc.SessionDescription {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("new offerer peer connection: %v", err)
	}
	t.Cleanup(func() { _ = pc.Close() })

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		t.Fatalf("add transceiver: %v", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		t.Fatalf("set local description: %v", err)
	}
	select {
	case <-gatherComplete:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ICE gathering")
	}
	return *pc.LocalDescription()
}

func TestHandleOfferProducesAnswerAndNotifiesPeerCount(t *testing.T) {
	tracks := track.NewRegistry()
	if _, err := tracks.Bind("sink_0", codec.H264, codec.Sample); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	var wg sync.WaitGroup
	reg := New("", tracks, wslog.Default(), context.Background(), &wg)

	offer := buildOffer(t)

	result, err := reg.HandleOffer(context.Background(), offer)
	if err != nil {
		t.Fatalf("HandleOffer: %v", err)
	}
	if result.Answer.Type != webrtc.SDPTypeAnswer {
		t.Errorf("answer type = %v, want answer", result.Answer.Type)
	}
	if result.SessionID == "" {
		t.Errorf("expected non-empty session id")
	}
	if result.NegotiatedCodec != "VIDEO/H264" {
		t.Errorf("negotiated codec = %q, want VIDEO/H264", result.NegotiatedCodec)
	}
	if got := reg.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}

	select {
	case n := <-reg.CountChan():
		if n != 1 {
			t.Errorf("peer count notification = %d, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatal("no peer count notification observed")
	}

	// Clean up the answerer side the registry created internally.
	reg.Close()
	wg.Wait()
}
