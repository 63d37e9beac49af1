// Package signaling implements the peer registry and the single signalling
// operation: accept an offer, build an answer, track the resulting peer
// connection, and emit peer-count events.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"

	"github.com/videologyinc/websink-go/pkg/sinkerr"
	"github.com/videologyinc/websink-go/pkg/track"
	"github.com/videologyinc/websink-go/pkg/wslog"
)

// gatherTimeout bounds the non-trickle ICE gathering wait so a signalling
// request can never hang forever on a stalled candidate gatherer.
const gatherTimeout = 10 * time.Second

// Session is a single peer connection's lifetime, identified by a
// server-generated UUID. It holds no back-reference to the registry beyond
// its id, per the design note on avoiding a peer-connection/observer cycle.
type Session struct {
	ID string
	PC *webrtc.PeerConnection
}

// Result is the outcome of a successful HandleOffer call.
type Result struct {
	Answer          webrtc.SessionDescription
	SessionID       string
	NegotiatedCodec string // uppercased MIME, or "" if undetermined
}

// Registry accepts offers, builds answers, and owns the set of live peer
// sessions. It implements forward.PeerCounter.
type Registry struct {
	iceServers []webrtc.ICEServer
	tracks     *track.Registry
	log        *wslog.Logger

	// lifeCtx and wg track the element's Start/Stop lifetime, not any one
	// HTTP request's — background goroutines spawned for the life of a
	// peer connection (the RTCP reader) must outlive the signalling
	// request that created them and must be waited on at Stop.
	lifeCtx context.Context
	wg      *sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session

	countCh chan int // capacity-1, try-send, latest-value-only
}

// New builds a Registry. stunServer may be empty to disable STUN. ctx and
// wg bound the lifetime of goroutines the registry spawns outside of any
// single request (the per-sender RTCP reader): they are cancelled and
// waited on together at Stop, via Close.
func New(stunServer string, tracks *track.Registry, log *wslog.Logger, ctx context.Context, wg *sync.WaitGroup) *Registry {
	var servers []webrtc.ICEServer
	if stunServer != "" {
		servers = []webrtc.ICEServer{{URLs: []string{stunServer}}}
	}
	return &Registry{
		iceServers: servers,
		tracks:     tracks,
		log:        log,
		lifeCtx:    ctx,
		wg:         wg,
		sessions:   make(map[string]*Session),
		countCh:    make(chan int, 1),
	}
}

// CountChan exposes the peer-count notification channel. Consumers observe
// only the latest coalesced value; sends never block the registry.
func (r *Registry) CountChan() <-chan int {
	return r.countCh
}

// Count reports the current number of attached peer sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) notifyCount() {
	n := len(r.sessions)
	select {
	case r.countCh <- n:
	default:
		// Coalesce: drain the stale value and retry once so the channel
		// always holds the latest count rather than an older one.
		select {
		case <-r.countCh:
		default:
		}
		select {
		case r.countCh <- n:
		default:
		}
	}
}

// HandleOffer implements the C4 algorithm: build a per-session engine,
// attach every live track, negotiate, wait for ICE gathering to complete,
// register the session, and install an eviction observer.
func (r *Registry) HandleOffer(ctx context.Context, offer webrtc.SessionDescription) (*Result, error) {
	liveTracks := r.tracks.Snapshot()
	if len(liveTracks) == 0 {
		return nil, fmt.Errorf("handle offer: %w", sinkerr.ErrNotReady)
	}

	m := &webrtc.MediaEngine{}
	if err := registerVideoCodecs(m); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(ir))

	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: r.iceServers})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	// Any early-return below must close pc; success returns nil here.
	ok := false
	defer func() {
		if !ok {
			_ = pc.Close()
		}
	}()

	var negotiatedMIME string
	for _, t := range liveTracks {
		sender, err := pc.AddTrack(t.Local())
		if err != nil {
			return nil, fmt.Errorf("add track %s: %w", t.PadName, err)
		}
		negotiatedMIME = t.Codec.MIME()
		r.startRTCPReader(sender)
	}

	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, classifyCodecError(err, negotiatedMIME)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, classifyCodecError(err, negotiatedMIME)
	}

	select {
	case <-gatherComplete:
	case <-time.After(gatherTimeout):
		return nil, fmt.Errorf("ice gathering: timed out after %s", gatherTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	final := pc.LocalDescription()
	if final == nil {
		return nil, errors.New("ice gathering completed without a local description")
	}

	sessionID := uuid.NewString()
	session := &Session{ID: sessionID, PC: pc}

	r.mu.Lock()
	r.sessions[sessionID] = session
	r.notifyCount()
	r.mu.Unlock()

	pc.OnConnectionStateChange(r.makeEvictionObserver(sessionID))

	ok = true
	return &Result{
		Answer:          *final,
		SessionID:       sessionID,
		NegotiatedCodec: strings.ToUpper(negotiatedMIME),
	}, nil
}

// makeEvictionObserver returns a connection-state-change callback that
// captures only the session id, not the peer connection itself, avoiding
// the cycle a direct back-reference would create.
func (r *Registry) makeEvictionObserver(sessionID string) func(webrtc.PeerConnectionState) {
	var evicted sync.Once
	return func(state webrtc.PeerConnectionState) {
		r.log.WebRTC("peer connection state change", "session_id", sessionID, "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			evicted.Do(func() {
				r.mu.Lock()
				delete(r.sessions, sessionID)
				r.notifyCount()
				r.mu.Unlock()
			})
		}
	}
}

// startRTCPReader spawns the sender's RTCP read loop for the life of the
// peer connection. It is tracked against the registry's WaitGroup so Stop
// can wait for it to actually exit rather than assuming it has: the loop
// only unblocks when sender.Read errors, which Close forces by closing the
// owning peer connection.
func (r *Registry) startRTCPReader(sender *webrtc.RTPSender) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		buf := make([]byte, 1500)
		for {
			select {
			case <-r.lifeCtx.Done():
				return
			default:
			}
			n, _, err := sender.Read(buf)
			if err != nil {
				return
			}
			pkts, err := rtcp.Unmarshal(buf[:n])
			if err != nil {
				continue
			}
			for _, pkt := range pkts {
				switch pkt.(type) {
				case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
					r.log.WebRTC("received keyframe request")
				}
			}
		}
	}()
}

// Close closes every live peer connection and clears the registry. It is
// called from Element.Stop so that, per spec's concurrency model, "peer
// connections in the registry at stop time are dropped, which triggers
// their internal teardown (DTLS close, ICE agent shutdown)" — in Go there
// is no refcount-drop to rely on, so this must happen explicitly.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.PC.Close(); err != nil {
			r.log.WebRTC("close peer connection failed", "session_id", sess.ID, "err", err)
		}
	}
}

// classifyCodecError maps a webrtc.ErrUnsupportedCodec failure from
// SetRemoteDescription/SetLocalDescription into sinkerr.UnsupportedCodecError
// carrying the MIME the sink was attempting to send, per spec's requirement
// that UnsupportedCodec include the sending MIME. Any other error passes
// through wrapped with its step's context.
func classifyCodecError(err error, sendingMIME string) error {
	if errors.Is(err, webrtc.ErrUnsupportedCodec) {
		return &sinkerr.UnsupportedCodecError{MIME: sendingMIME}
	}
	return fmt.Errorf("negotiate: %w", err)
}
