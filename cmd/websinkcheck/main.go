// Command websinkcheck starts a sink element in-process, feeds it a
// handful of synthetic access units, then negotiates a real WebRTC session
// against its own signalling route end to end — an adaptation of the
// original verify command's "ping the external API and print checkmarks"
// texture to "ping our own signalling route".
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/videologyinc/websink-go/pkg/codec"
	"github.com/videologyinc/websink-go/pkg/pad"
	"github.com/videologyinc/websink-go/pkg/sink"
	"github.com/videologyinc/websink-go/pkg/wslog"
)

func main() {
	fmt.Println("websink-go end-to-end check")
	fmt.Println(repeat("=", 40))

	if err := run(); err != nil {
		fmt.Printf("\n✗ check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✓ signalling round-trip succeeded")
}

func run() error {
	settings := sink.DefaultSettings()
	settings.Port = 0
	element := sink.New(settings, wslog.Default())

	port, err := element.Start()
	if err != nil {
		return fmt.Errorf("start sink: %w", err)
	}
	defer element.Stop(context.Background())

	fmt.Printf("✓ sink started on port %d\n", port)

	padName := element.RequestPad()
	if !element.HandleFormatEvent(padName, codec.FormatDescriptor{MediaType: "video/x-h264"}) {
		return fmt.Errorf("format event rejected for pad %s", padName)
	}
	fmt.Println("✓ track bound for h264 sample stream")

	au := bytes.Repeat([]byte{0xAA}, 1024)
	for i := 0; i < 5; i++ {
		if !element.HandleBuffer(padName, pad.Buffer{Payload: au}) {
			return fmt.Errorf("buffer %d was rejected", i)
		}
	}
	fmt.Println("✓ pushed 5 access units")

	offer, pc, err := buildOffer()
	if err != nil {
		return fmt.Errorf("build offer: %w", err)
	}
	defer pc.Close()

	answer, sessionID, negotiated, err := postOffer(port, offer)
	if err != nil {
		return fmt.Errorf("post offer: %w", err)
	}
	fmt.Printf("✓ received answer, session_id=%s negotiated_codec=%v\n", sessionID, negotiated)

	if err := pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	fmt.Println("✓ remote description applied")

	return nil
}

func buildOffer() (webrtc.SessionDescription, *webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return webrtc.SessionDescription{}, nil, err
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		pc.Close()
		return webrtc.SessionDescription{}, nil, err
	}
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return webrtc.SessionDescription{}, nil, err
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return webrtc.SessionDescription{}, nil, err
	}
	select {
	case <-gatherComplete:
	case <-time.After(5 * time.Second):
		pc.Close()
		return webrtc.SessionDescription{}, nil, fmt.Errorf("timed out waiting for ICE gathering")
	}
	return *pc.LocalDescription(), pc, nil
}

type sessionRequest struct {
	Offer webrtc.SessionDescription `json:"offer"`
}

type sessionResponse struct {
	Answer          webrtc.SessionDescription `json:"answer"`
	SessionID       string                    `json:"session_id"`
	NegotiatedCodec *string                   `json:"negotiated_codec"`
}

func postOffer(port int, offer webrtc.SessionDescription) (webrtc.SessionDescription, string, *string, error) {
	body, err := json.Marshal(sessionRequest{Offer: offer})
	if err != nil {
		return webrtc.SessionDescription{}, "", nil, err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	url := fmt.Sprintf("http://127.0.0.1:%d/api/session", port)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return webrtc.SessionDescription{}, "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return webrtc.SessionDescription{}, "", nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var sessResp sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sessResp); err != nil {
		return webrtc.SessionDescription{}, "", nil, err
	}
	return sessResp.Answer, sessResp.SessionID, sessResp.NegotiatedCodec, nil
}

func repeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
