// Package pad defines the contract between the sink element and whatever
// host media framework drives it. A real pipeline binding implements
// Source to push format events and buffers into the sink; the sink
// implements Sink to receive them. Keeping this as a plain Go interface
// rather than a concrete dependency on a pipeline library is what lets the
// element run standalone in a demo harness or under test.
package pad

import (
	"context"

	"github.com/videologyinc/websink-go/pkg/codec"
)

// Buffer is a single inbound unit of media data on a pad: either a raw
// encoded access unit (Sample mode) or a pre-packetised RTP packet (Rtp
// mode), depending on the pad's negotiated mode.
type Buffer struct {
	// Payload is the buffer's bytes. The forwarder copies this before
	// any asynchronous use; callers may reuse or free it immediately
	// after the call that receives it returns.
	Payload []byte
	// DurationNS is the buffer's presentation duration in nanoseconds,
	// only meaningful in Sample mode. Zero means "use the default".
	DurationNS uint64
}

// Sink is the contract a pad's owner (the sink element) exposes to the
// host framework: one format-event handler and one data handler per pad.
type Sink interface {
	// HandleFormatEvent is invoked once ahead of data on a pad, announcing
	// its media type. Returning false rejects the negotiation.
	HandleFormatEvent(padName string, desc codec.FormatDescriptor) bool
	// HandleBuffer is invoked synchronously for every inbound buffer on a
	// pad. It must never block; ok=false signals the pipeline a failure
	// (e.g. an unbound pad), which is itself a non-fatal condition the
	// caller logs and continues past.
	HandleBuffer(padName string, buf Buffer) (ok bool)
}

// Source is the contract a host pipeline binding implements to drive a
// Sink: request a pad, announce its format, push buffers, then release it.
// This module does not implement Source itself — it is the external
// collaborator named in the purpose and scope — but cmd/websinkdemo
// provides a synthetic one for demonstration and testing.
type Source interface {
	// RequestPad allocates a new pad name from the sink (sink_%u) and
	// returns it.
	RequestPad() string
	// Run drives format events and buffers into sink for the given pad
	// until ctx is cancelled.
	Run(ctx context.Context, sink Sink, padName string) error
	// ReleasePad notifies the sink that no further buffers will arrive
	// on padName.
	ReleasePad(padName string)
}
