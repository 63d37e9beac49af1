// Package sink implements the sink element lifecycle (C6): properties, pad
// management, NULL<->READY transitions, and resource cleanup, wiring the
// classifier, track registry, forwarder, peer registry, and HTTP surface
// together.
package sink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/videologyinc/websink-go/pkg/codec"
	"github.com/videologyinc/websink-go/pkg/forward"
	"github.com/videologyinc/websink-go/pkg/httpsurface"
	"github.com/videologyinc/websink-go/pkg/pad"
	"github.com/videologyinc/websink-go/pkg/signaling"
	"github.com/videologyinc/websink-go/pkg/sinkerr"
	"github.com/videologyinc/websink-go/pkg/track"
	"github.com/videologyinc/websink-go/pkg/wslog"
)

// stopWaitTimeout bounds how long Stop waits for in-flight signalling and
// forwarder goroutines to exit once their peer connections have been
// closed, before giving up and logging rather than hanging the transition.
const stopWaitTimeout = 5 * time.Second

// Settings is the element's configuration: the recognized options
// enumerated in the data model. Setting while active is allowed but only
// takes effect at the next start.
type Settings struct {
	// Port is the requested listening port; 0 means "any free".
	Port int
	// StunServer is a URI string; empty disables STUN.
	StunServer string
	// IsLive, when true, makes the forwarder drop buffers while zero
	// peers are attached.
	IsLive bool
}

// DefaultSettings matches the original implementation's defaults.
func DefaultSettings() Settings {
	return Settings{
		Port:       8091,
		StunServer: "stun:stun.l.google.com:19302",
		IsLive:     false,
	}
}

// Element is the sink: the single object the host pipeline framework
// requests pads from, sets properties on, and drives through NULL/READY
// state transitions.
type Element struct {
	log *wslog.Logger

	mu       sync.Mutex
	settings Settings
	running  bool

	// liveAtStart is settings.IsLive as of the last Start; the forwarder
	// reads this, so a later SetSettings applies at the next Start.
	liveAtStart bool

	padCounter atomic.Uint32

	tracks *track.Registry
	peers  *signaling.Registry
	fwd    *forward.Forwarder
	http   *httpsurface.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an Element with the given settings and logger. The
// element does not start any background work until Start is called.
func New(settings Settings, log *wslog.Logger) *Element {
	if log == nil {
		log = wslog.Default()
	}
	return &Element{settings: settings, log: log}
}

// RequestPad allocates a new input pad with a monotonically assigned
// integer suffix, following the sink_%u pad template. Multi-input is
// first-class: every call returns a fresh, distinct pad name.
func (e *Element) RequestPad() string {
	n := e.padCounter.Add(1) - 1
	return fmt.Sprintf("sink_%d", n)
}

// SetSettings replaces the element's settings. Per §4.6, changes while
// active only take effect at the next Start.
func (e *Element) SetSettings(s Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
}

// Settings returns a copy of the element's current settings.
func (e *Element) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Start implements NULL->READY: it creates the track/peer registries, the
// forwarder, and launches the HTTP server, returning the bound port.
func (e *Element) Start() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return 0, fmt.Errorf("start: %w: already running", sinkerr.ErrRuntimeInitFailed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.ctx = ctx
	e.cancel = cancel
	e.wg = sync.WaitGroup{}
	e.liveAtStart = e.settings.IsLive

	e.tracks = track.NewRegistry()
	e.peers = signaling.New(e.settings.StunServer, e.tracks, e.log, e.ctx, &e.wg)
	e.fwd = forward.New(e.tracks, e.peers, e.isLiveSnapshot, e.log, e.ctx, &e.wg)

	srv, err := httpsurface.New(e.peers, e.log)
	if err != nil {
		cancel()
		return 0, fmt.Errorf("start: %w: %v", sinkerr.ErrRuntimeInitFailed, err)
	}
	e.http = srv

	port, err := srv.Start(e.settings.Port)
	if err != nil {
		cancel()
		return 0, fmt.Errorf("start: %w: %w", sinkerr.ErrRuntimeInitFailed, err)
	}

	e.running = true
	return port, nil
}

// isLiveSnapshot reads, under lock, the is_live value captured at Start for
// the forwarder's per-call check.
func (e *Element) isLiveSnapshot() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveAtStart
}

// Stop implements READY->NULL: it aborts the HTTP server, cancels the
// element's context, closes every live peer connection so their internal
// teardown (DTLS close, ICE agent shutdown) actually runs, waits for the
// in-flight signalling and forwarder goroutines that teardown unblocks,
// and only then clears the registries.
func (e *Element) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}

	var err error
	if e.http != nil {
		err = e.http.Stop(ctx)
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.peers != nil {
		e.peers.Close()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopWaitTimeout):
		e.log.Track("stop: timed out waiting for in-flight goroutines", "timeout", stopWaitTimeout)
	}

	e.tracks = nil
	e.peers = nil
	e.fwd = nil
	e.http = nil
	e.running = false
	return err
}

// HandleFormatEvent implements the per-pad format event handler: invokes
// the classifier, then binds a track. Returning false rejects the
// negotiation, per §4.6.
func (e *Element) HandleFormatEvent(padName string, desc codec.FormatDescriptor) bool {
	c, mode, ok := codec.Classify(desc)
	if !ok {
		e.log.Pad("format event rejected: unsupported format", "pad", padName, "media_type", desc.MediaType)
		return false
	}

	fwd := e.currentForwarderState()
	if fwd.tracks == nil {
		e.log.Pad("format event rejected: element not running", "pad", padName)
		return false
	}

	if _, err := fwd.tracks.Bind(padName, c, mode); err != nil {
		e.log.Pad("format event rejected: bind failed", "pad", padName, "err", err)
		return false
	}
	e.log.Pad("format event accepted", "pad", padName, "codec", c.String(), "mode", mode.String())
	return true
}

// HandleBuffer implements the per-pad data handler: invokes the forwarder.
func (e *Element) HandleBuffer(padName string, buf pad.Buffer) bool {
	fwd := e.currentForwarderState()
	if fwd.fwd == nil {
		return false
	}
	return fwd.fwd.Forward(padName, buf)
}

// ReleasePad unbinds padName's track, matching pad release during
// multi-input teardown.
func (e *Element) ReleasePad(padName string) {
	fwd := e.currentForwarderState()
	if fwd.tracks == nil {
		return
	}
	fwd.tracks.Unbind(padName)
}

type runningState struct {
	tracks *track.Registry
	fwd    *forward.Forwarder
}

func (e *Element) currentForwarderState() runningState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return runningState{tracks: e.tracks, fwd: e.fwd}
}
