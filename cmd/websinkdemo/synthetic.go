package main

import (
	"context"
	"time"

	"github.com/videologyinc/websink-go/pkg/codec"
	"github.com/videologyinc/websink-go/pkg/pad"
)

// syntheticH264Source is a pad.Source standing in for a real pipeline
// binding: it announces an H.264 byte-stream format, then pushes a
// fixed-size "access unit" at a steady frame rate until its context is
// cancelled. It exists to make the sink element runnable end-to-end
// without a real upstream media framework.
type syntheticH264Source struct {
	padName    string
	frameEvery time.Duration
}

func newSyntheticH264Source(frameEvery time.Duration) *syntheticH264Source {
	return &syntheticH264Source{frameEvery: frameEvery}
}

// RequestPad returns the pad name most recently passed to Run ("" before
// the first Run); it does not allocate a pad from the sink.
func (s *syntheticH264Source) RequestPad() string {
	return s.padName
}

func (s *syntheticH264Source) Run(ctx context.Context, sink pad.Sink, padName string) error {
	s.padName = padName
	desc := codec.FormatDescriptor{MediaType: "video/x-h264"}
	if !sink.HandleFormatEvent(padName, desc) {
		return errFormatRejected(padName)
	}

	ticker := time.NewTicker(s.frameEvery)
	defer ticker.Stop()

	au := make([]byte, 4096)
	for i := range au {
		au[i] = byte(i)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sink.HandleBuffer(padName, pad.Buffer{Payload: au})
		}
	}
}

func (s *syntheticH264Source) ReleasePad(padName string) {}

type formatRejectedError struct{ pad string }

func (e *formatRejectedError) Error() string {
	return "format event rejected for pad " + e.pad
}

func errFormatRejected(padName string) error {
	return &formatRejectedError{pad: padName}
}
