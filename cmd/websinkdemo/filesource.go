package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/videologyinc/websink-go/pkg/codec"
	"github.com/videologyinc/websink-go/pkg/pad"
)

// annexBStartCode is the 4-byte start code most encoders emit; a 3-byte
// variant is also accepted when splitting.
var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

// fileH264Source is a pad.Source that reads a raw Annex-B H.264 elementary
// stream from disk, splits it into individual NAL units on start-code
// boundaries, and pushes one NAL unit per buffer at a fixed rate, looping
// over the file. It stands in
// for the synthetic generator when a real capture is available on disk.
type fileH264Source struct {
	path       string
	frameEvery time.Duration
	padName    string
}

func newFileH264Source(path string, frameEvery time.Duration) *fileH264Source {
	return &fileH264Source{path: path, frameEvery: frameEvery}
}

// RequestPad returns the pad name most recently passed to Run ("" before
// the first Run); it does not allocate a pad from the sink.
func (s *fileH264Source) RequestPad() string {
	return s.padName
}

func (s *fileH264Source) Run(ctx context.Context, sink pad.Sink, padName string) error {
	s.padName = padName

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	aus, err := splitAnnexB(f)
	if err != nil {
		return fmt.Errorf("split annex-b stream: %w", err)
	}
	if len(aus) == 0 {
		return fmt.Errorf("input file %s contains no NAL units", s.path)
	}

	desc := codec.FormatDescriptor{MediaType: "video/x-h264"}
	if !sink.HandleFormatEvent(padName, desc) {
		return errFormatRejected(padName)
	}

	ticker := time.NewTicker(s.frameEvery)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(aus) {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sink.HandleBuffer(padName, pad.Buffer{Payload: aus[i]})
		}
	}
}

func (s *fileH264Source) ReleasePad(padName string) {}

// splitAnnexB reads r fully and splits it into individual NAL units on
// 3- or 4-byte start-code boundaries, each returned without its start code.
// Trailing zero bytes some muxers pad the stream with are dropped along
// with any empty unit that would otherwise result.
func splitAnnexB(r io.Reader) ([][]byte, error) {
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}

	var units [][]byte
	start := -1
	i := 0
	for i < len(data) {
		n := startCodeLen(data[i:])
		if n == 0 {
			i++
			continue
		}
		if start >= 0 {
			if unit := bytes.TrimRight(data[start:i], "\x00"); len(unit) > 0 {
				units = append(units, unit)
			}
		}
		i += n
		start = i
	}
	if start >= 0 && start < len(data) {
		if unit := bytes.TrimRight(data[start:], "\x00"); len(unit) > 0 {
			units = append(units, unit)
		}
	}
	return units, nil
}

// startCodeLen reports the length of the Annex-B start code at the front
// of b (4, 3, or 0 if none is present).
func startCodeLen(b []byte) int {
	if bytes.HasPrefix(b, annexBStartCode) {
		return 4
	}
	if bytes.HasPrefix(b, annexBStartCode[1:]) {
		return 3
	}
	return 0
}
