package httpsurface

import (
	"net"
	"testing"
)

func TestAcquirePortEphemeral(t *testing.T) {
	ln, err := acquirePort(0)
	if err != nil {
		t.Fatalf("acquirePort(0): %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port
	if port == 0 {
		t.Fatalf("expected a non-zero assigned port")
	}
}

func TestAcquirePortFallsBackWhenOccupied(t *testing.T) {
	held, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("pre-bind: %v", err)
	}
	defer held.Close()
	occupied := held.Addr().(*net.TCPAddr).Port

	ln, err := acquirePort(occupied)
	if err != nil {
		t.Fatalf("acquirePort(%d): %v", occupied, err)
	}
	defer ln.Close()

	got := ln.Addr().(*net.TCPAddr).Port
	if got <= occupied || got > occupied+100 {
		t.Fatalf("acquirePort(%d) = %d, want in (%d, %d]", occupied, got, occupied, occupied+100)
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"index.html": "text/html; charset=utf-8",
		"viewer.js":  "application/javascript; charset=utf-8",
		"style.css":  "text/css; charset=utf-8",
		"data.bin":   "application/octet-stream",
	}
	for path, want := range cases {
		if got := contentType(path); got != want {
			t.Errorf("contentType(%q) = %q, want %q", path, got, want)
		}
	}
}
