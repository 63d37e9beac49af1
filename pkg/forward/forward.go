// Package forward implements the buffer-to-track forwarding fast path: the
// synchronous call invoked on the pipeline's streaming thread for every
// inbound buffer.
package forward

import (
	"context"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/videologyinc/websink-go/pkg/codec"
	"github.com/videologyinc/websink-go/pkg/pad"
	"github.com/videologyinc/websink-go/pkg/track"
	"github.com/videologyinc/websink-go/pkg/wslog"
)

// defaultSampleDuration is used when a Sample-mode buffer carries no
// duration of its own.
const defaultSampleDuration = 33_333_333 * time.Nanosecond

// PeerCounter reports the current number of attached peers. The peer
// registry (pkg/signaling) implements this.
type PeerCounter interface {
	Count() int
}

// Forwarder owns no goroutines of its own: Forward runs synchronously on
// the caller's goroutine and only ever spawns a single one-shot goroutine
// per buffer to perform the track write off that goroutine, mirroring the
// teacher's split between "caller copies and hands off" and "a background
// goroutine does the slow part" without a pacer loop, since this spec does
// not call for leaky-bucket smoothing.
type Forwarder struct {
	tracks *track.Registry
	peers  PeerCounter
	isLive func() bool
	log    *wslog.Logger

	// lifeCtx and wg bound the element's Start/Stop lifetime: every
	// spawned write goroutine registers against wg before Forward
	// returns, so Stop can wait for in-flight writes to actually finish
	// instead of assuming they have, and checks lifeCtx before writing so
	// a write queued just before Stop does not run after teardown.
	lifeCtx context.Context
	wg      *sync.WaitGroup
}

// New builds a Forwarder over the given track registry and peer counter.
// isLive is read fresh on every call, honoring the "takes effect at next
// start" semantics of the is_live property at the settings layer above it.
// ctx and wg track the element's lifetime, per the forwarder's spawned
// write goroutines.
func New(tracks *track.Registry, peers PeerCounter, isLive func() bool, log *wslog.Logger, ctx context.Context, wg *sync.WaitGroup) *Forwarder {
	return &Forwarder{tracks: tracks, peers: peers, isLive: isLive, log: log, lifeCtx: ctx, wg: wg}
}

// Forward implements the C3 algorithm: short-held-lock reads of peer count
// and track binding, the is_live/peer_count short-circuit, a payload copy,
// and an async dispatch that never blocks the caller. It returns false when
// the pad has no bound track yet — a non-fatal condition the caller logs
// and continues past.
func (f *Forwarder) Forward(padName string, buf pad.Buffer) bool {
	peerCount := f.peers.Count()
	live := f.isLive()

	if live && peerCount == 0 {
		return true
	}

	t, found := f.tracks.Lookup(padName)
	if !found {
		f.log.Track("forward: no track bound for pad", "pad", padName)
		return false
	}

	payload := make([]byte, len(buf.Payload))
	copy(payload, buf.Payload)

	f.wg.Add(1)
	switch t.Mode {
	case codec.Rtp:
		go f.writeRTP(t, payload)
	default:
		dur := time.Duration(buf.DurationNS)
		if dur == 0 {
			dur = defaultSampleDuration
		}
		go f.writeSample(t, payload, dur)
	}
	return true
}

func (f *Forwarder) writeSample(t *track.Track, payload []byte, dur time.Duration) {
	defer f.wg.Done()
	select {
	case <-f.lifeCtx.Done():
		return
	default:
	}
	if err := t.Sample.WriteSample(media.Sample{Data: payload, Duration: dur}); err != nil {
		f.log.Track("forward: sample write failed", "pad", t.PadName, "err", err)
	}
}

func (f *Forwarder) writeRTP(t *track.Track, payload []byte) {
	defer f.wg.Done()
	select {
	case <-f.lifeCtx.Done():
		return
	default:
	}
	var pkt rtp.Packet
	if err := pkt.Unmarshal(payload); err != nil {
		f.log.Track("forward: rtp parse failed", "pad", t.PadName, "err", err)
		return
	}
	if err := t.RTP.WriteRTP(&pkt); err != nil {
		f.log.Track("forward: rtp write failed", "pad", t.PadName, "err", err)
	}
}
