// Package codec classifies an upstream format descriptor into a codec and
// stream mode, the one point in the pipeline where that decision is made.
package codec

import "strings"

// Codec is a tagged variant over the supported video codecs. Each carries a
// fixed MIME string used in WebRTC codec capability negotiation.
type Codec int

const (
	Unknown Codec = iota
	H264
	H265
	VP8
	VP9
)

// MIME returns the fixed MIME string for the codec, as listed in the codec
// MIME table.
func (c Codec) MIME() string {
	switch c {
	case H264:
		return "video/h264"
	case H265:
		return "video/h265"
	case VP8:
		return "video/vp8"
	case VP9:
		return "video/vp9"
	default:
		return ""
	}
}

func (c Codec) String() string {
	switch c {
	case H264:
		return "H264"
	case H265:
		return "H265"
	case VP8:
		return "VP8"
	case VP9:
		return "VP9"
	default:
		return "Unknown"
	}
}

// Mode is a tagged variant over the two ways a buffer on a bound pad can
// carry media.
type Mode int

const (
	// Sample means the incoming buffer is a raw encoded access unit that
	// the outbound transport will packetise.
	Sample Mode = iota
	// Rtp means the buffer is already an RTP packet that must be
	// forwarded verbatim after parsing a minimal header.
	Rtp
)

func (m Mode) String() string {
	if m == Rtp {
		return "rtp"
	}
	return "sample"
}

// FormatDescriptor is the upstream announcement of a pad's media type,
// carried in-band by a format event ahead of any buffers on that pad.
type FormatDescriptor struct {
	// MediaType is the primary media-type name, e.g. "video/x-h264" or
	// "application/x-rtp".
	MediaType string
	// EncodingName is only meaningful when MediaType is
	// "application/x-rtp"; it names the RTP payload's codec.
	EncodingName string
}

var sampleCodecs = map[string]Codec{
	"video/x-h264": H264,
	"video/x-h265": H265,
	"video/x-vp8":  VP8,
	"video/x-vp9":  VP9,
}

var rtpCodecs = map[string]Codec{
	"H264": H264,
	"H265": H265,
	"VP8":  VP8,
	"VP9":  VP9,
}

// Classify maps a format descriptor to (codec, mode), or reports ok=false
// when the descriptor names an unsupported format. The rules are exhaustive:
// video/x-h264|h265|vp8|vp9 map to (codec, Sample); application/x-rtp with
// a recognized encoding-name maps to (codec, Rtp); anything else is
// unsupported.
func Classify(d FormatDescriptor) (c Codec, m Mode, ok bool) {
	if codec, found := sampleCodecs[d.MediaType]; found {
		return codec, Sample, true
	}
	if d.MediaType == "application/x-rtp" {
		if codec, found := rtpCodecs[strings.ToUpper(d.EncodingName)]; found {
			return codec, Rtp, true
		}
		return Unknown, Sample, false
	}
	return Unknown, Sample, false
}
