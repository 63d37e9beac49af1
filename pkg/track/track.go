// Package track owns the set of outbound WebRTC media tracks, keyed by the
// input pad that feeds them. It is the bridge between C1's classification
// decision and C3's per-buffer forwarding.
package track

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/videologyinc/websink-go/pkg/codec"
	"github.com/videologyinc/websink-go/pkg/sinkerr"
)

// Track is the outbound entity a pad's buffers are forwarded to. Writes in
// Sample mode go through the sample local-track API; writes in Rtp mode
// write pre-packetised RTP directly.
type Track struct {
	PadName string
	Codec   codec.Codec
	Mode    codec.Mode

	// Sample is non-nil when Mode == codec.Sample.
	Sample *webrtc.TrackLocalStaticSample
	// RTP is non-nil when Mode == codec.Rtp.
	RTP *webrtc.TrackLocalStaticRTP
}

// Local returns the webrtc.TrackLocal to attach to a peer connection,
// regardless of mode.
func (t *Track) Local() webrtc.TrackLocal {
	if t.Mode == codec.Rtp {
		return t.RTP
	}
	return t.Sample
}

// Registry owns all live tracks, guarded by its own mutex per spec §5 ("the
// per-pad lookup map is guarded by its own mutex, because the data-plane
// consults it at high frequency" — separate from the single SharedState
// mutex that guards the peer registry and config).
type Registry struct {
	mu    sync.RWMutex
	byPad map[string]*Track
	order []string // pad names in bind order, for stable Snapshot iteration
}

// NewRegistry constructs an empty track registry.
func NewRegistry() *Registry {
	return &Registry{byPad: make(map[string]*Track)}
}

// Bind creates a new outbound track for padName with the given codec and
// mode, or reuses the existing track if the pad is already bound with a
// compatible (codec, mode). An incompatible change on an already-bound pad
// fails with sinkerr.ErrBadRenegotiation.
func (r *Registry) Bind(padName string, c codec.Codec, mode codec.Mode) (*Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, found := r.byPad[padName]; found {
		if existing.Codec == c && existing.Mode == mode {
			return existing, nil
		}
		return nil, fmt.Errorf("pad %s: %w", padName, sinkerr.ErrBadRenegotiation)
	}

	trackID := "track_" + padName
	streamID := "stream_" + padName
	t := &Track{PadName: padName, Codec: c, Mode: mode}

	switch mode {
	case codec.Rtp:
		rt, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{MimeType: c.MIME()}, trackID, streamID)
		if err != nil {
			return nil, fmt.Errorf("new rtp track for pad %s: %w", padName, err)
		}
		t.RTP = rt
	default:
		st, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: c.MIME()}, trackID, streamID)
		if err != nil {
			return nil, fmt.Errorf("new sample track for pad %s: %w", padName, err)
		}
		t.Sample = st
	}

	r.byPad[padName] = t
	r.order = append(r.order, padName)
	return t, nil
}

// Unbind marks padName's track removed. Existing peer connections may
// continue to hold their reader side until the peer closes; no new writes
// occur because Lookup will no longer find the pad.
func (r *Registry) Unbind(padName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPad, padName)
	for i, p := range r.order {
		if p == padName {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Lookup returns the track bound to padName, if any.
func (r *Registry) Lookup(padName string) (*Track, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, found := r.byPad[padName]
	return t, found
}

// Snapshot returns a defensive copy of all live tracks in bind order, for
// attaching to a newly created peer connection.
func (r *Registry) Snapshot() []*Track {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Track, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, r.byPad[p])
	}
	return out
}

// Len reports the number of live tracks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
