package codec

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		desc    FormatDescriptor
		wantOK  bool
		wantC   Codec
		wantM   Mode
	}{
		{"h264 sample", FormatDescriptor{MediaType: "video/x-h264"}, true, H264, Sample},
		{"h265 sample", FormatDescriptor{MediaType: "video/x-h265"}, true, H265, Sample},
		{"vp8 sample", FormatDescriptor{MediaType: "video/x-vp8"}, true, VP8, Sample},
		{"vp9 sample", FormatDescriptor{MediaType: "video/x-vp9"}, true, VP9, Sample},
		{"rtp h264", FormatDescriptor{MediaType: "application/x-rtp", EncodingName: "H264"}, true, H264, Rtp},
		{"rtp vp9", FormatDescriptor{MediaType: "application/x-rtp", EncodingName: "VP9"}, true, VP9, Rtp},
		{"rtp unknown encoding", FormatDescriptor{MediaType: "application/x-rtp", EncodingName: "OPUS"}, false, Unknown, Sample},
		{"unsupported media type", FormatDescriptor{MediaType: "audio/mpeg"}, false, Unknown, Sample},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m, ok := Classify(tt.desc)
			if ok != tt.wantOK {
				t.Fatalf("Classify(%+v) ok = %v, want %v", tt.desc, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if c != tt.wantC || m != tt.wantM {
				t.Fatalf("Classify(%+v) = (%v, %v), want (%v, %v)", tt.desc, c, m, tt.wantC, tt.wantM)
			}
		})
	}
}

func TestCodecMIME(t *testing.T) {
	cases := map[Codec]string{
		H264: "video/h264",
		H265: "video/h265",
		VP8:  "video/vp8",
		VP9:  "video/vp9",
	}
	for c, want := range cases {
		if got := c.MIME(); got != want {
			t.Errorf("%v.MIME() = %q, want %q", c, got, want)
		}
	}
}
