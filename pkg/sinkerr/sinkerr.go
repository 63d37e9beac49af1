// Package sinkerr defines the sentinel error kinds the sink element can
// return, so callers can distinguish them with errors.Is instead of string
// matching.
package sinkerr

import "errors"

var (
	// ErrUnsupportedFormat names the failure where a format event names a
	// media type the classifier does not recognize. Element.HandleFormatEvent
	// reports that case by returning false; no function in this module
	// returns this error.
	ErrUnsupportedFormat = errors.New("sink: unsupported format")

	// ErrBadRenegotiation is returned when a bound pad receives a new
	// format event that is incompatible with its existing track.
	ErrBadRenegotiation = errors.New("sink: bad renegotiation")

	// ErrNotReady is returned when signalling arrives before the sink has
	// a WebRTC configuration and at least one track to attach.
	ErrNotReady = errors.New("sink: not ready")

	// ErrUnsupportedCodec is returned when the remote peer rejects the
	// codec the sink is sending during answer negotiation.
	ErrUnsupportedCodec = errors.New("sink: unsupported codec")

	// ErrNoPortAvailable is returned when no port in the fallback range
	// could be bound.
	ErrNoPortAvailable = errors.New("sink: no port available")

	// ErrRuntimeInitFailed is returned when start fails to bring up the
	// HTTP surface or WebRTC configuration.
	ErrRuntimeInitFailed = errors.New("sink: runtime init failed")

	// ErrUnknownPad names the failure where an operation references a pad
	// name that has no binding. The forwarder reports that case by
	// returning false; no function in this module returns this error.
	ErrUnknownPad = errors.New("sink: unknown pad")
)

// UnsupportedCodecError wraps ErrUnsupportedCodec with the offending MIME
// type, matching spec's requirement that the message include the MIME.
type UnsupportedCodecError struct {
	MIME string
}

func (e *UnsupportedCodecError) Error() string {
	return "sink: unsupported codec: " + e.MIME
}

func (e *UnsupportedCodecError) Unwrap() error {
	return ErrUnsupportedCodec
}
