package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videologyinc/websink-go/pkg/codec"
	"github.com/videologyinc/websink-go/pkg/sinkerr"
)

func TestBindCreatesTrackWithDerivedIDs(t *testing.T) {
	r := NewRegistry()
	tr, err := r.Bind("sink_0", codec.H264, codec.Sample)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if tr.Sample == nil || tr.RTP != nil {
		t.Fatalf("expected sample-mode track, got %+v", tr)
	}
	if got := tr.Sample.ID(); got != "track_sink_0" {
		t.Errorf("track id = %q, want track_sink_0", got)
	}
	if got := tr.Sample.StreamID(); got != "stream_sink_0" {
		t.Errorf("stream id = %q, want stream_sink_0", got)
	}
}

func TestBindIsIdempotentForCompatibleFormat(t *testing.T) {
	r := NewRegistry()
	first, err := r.Bind("sink_0", codec.H264, codec.Sample)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	second, err := r.Bind("sink_0", codec.H264, codec.Sample)
	if err != nil {
		t.Fatalf("second Bind: %v", err)
	}
	if first != second {
		t.Errorf("expected same track instance on compatible rebind")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestBindRejectsIncompatibleRenegotiation(t *testing.T) {
	r := NewRegistry()
	_, err := r.Bind("sink_0", codec.H264, codec.Sample)
	require.NoError(t, err)

	_, err = r.Bind("sink_0", codec.VP8, codec.Sample)
	assert.ErrorIs(t, err, sinkerr.ErrBadRenegotiation)
}

func TestUnbindRemovesFromLookupAndSnapshot(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Bind("sink_0", codec.H264, codec.Sample); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	r.Unbind("sink_0")
	if _, found := r.Lookup("sink_0"); found {
		t.Errorf("expected pad to be unbound")
	}
	if got := len(r.Snapshot()); got != 0 {
		t.Errorf("Snapshot() len = %d, want 0", got)
	}
}

func TestSnapshotPreservesBindOrder(t *testing.T) {
	r := NewRegistry()
	pads := []string{"sink_0", "sink_1", "sink_2"}
	for _, p := range pads {
		if _, err := r.Bind(p, codec.H264, codec.Sample); err != nil {
			t.Fatalf("Bind(%s): %v", p, err)
		}
	}
	snap := r.Snapshot()
	if len(snap) != len(pads) {
		t.Fatalf("Snapshot() len = %d, want %d", len(snap), len(pads))
	}
	for i, p := range pads {
		if snap[i].PadName != p {
			t.Errorf("Snapshot()[%d].PadName = %q, want %q", i, snap[i].PadName, p)
		}
	}
}
