// Package httpsurface binds a TCP port, serves the embedded viewer assets,
// and routes the signalling endpoint to the peer registry.
package httpsurface

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"golang.org/x/time/rate"

	"github.com/videologyinc/websink-go/pkg/signaling"
	"github.com/videologyinc/websink-go/pkg/sinkerr"
	"github.com/videologyinc/websink-go/pkg/wslog"
)

//go:embed web/*
var webFS embed.FS

const (
	readTimeout       = 15 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second

	// sessionRateBurst/sessionRateRefill guard POST /api/session against a
	// buggy or hostile client retrying offers, grounded on pkg/nest/queue.go's
	// use of golang.org/x/time/rate for outbound command pacing — repurposed
	// here for inbound request throttling.
	sessionRateBurst  = 5
	sessionRateRefill = rate.Limit(5)
)

// Negotiator is the subset of the signalling registry the HTTP surface
// needs: accept an offer and produce an answer.
type Negotiator interface {
	HandleOffer(ctx context.Context, offer webrtc.SessionDescription) (*signaling.Result, error)
}

// Server is the embedded HTTP surface: port acquisition, static assets, and
// the /api/session route.
type Server struct {
	negotiator Negotiator
	log        *wslog.Logger
	limiter    *rate.Limiter

	httpServer *http.Server
	listener   net.Listener
	staticFS   fs.FS
}

// New builds a Server. negotiator is consulted on every POST /api/session.
func New(negotiator Negotiator, log *wslog.Logger) (*Server, error) {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, fmt.Errorf("sub embedded fs: %w", err)
	}
	return &Server{
		negotiator: negotiator,
		log:        log,
		limiter:    rate.NewLimiter(sessionRateRefill, sessionRateBurst),
		staticFS:   sub,
	}, nil
}

// acquirePort implements the port-acquisition policy: 0 binds ephemeral;
// otherwise try requestedPort, then probe upward to requestedPort+100 (or
// 65535, whichever is lower), failing with sinkerr.ErrNoPortAvailable if
// every probe fails.
func acquirePort(requestedPort int) (net.Listener, error) {
	if requestedPort == 0 {
		return net.Listen("tcp", ":0")
	}

	maxPort := requestedPort + 100
	if maxPort > 65535 {
		maxPort = 65535
	}

	var lastErr error
	for p := requestedPort; p <= maxPort; p++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", p))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("acquire port %d..%d: %w: %v", requestedPort, maxPort, sinkerr.ErrNoPortAvailable, lastErr)
}

// Start acquires a listening port and launches the HTTP server in the
// background. It returns the bound port for logging and for clients that
// discovered the service by other means.
func (s *Server) Start(requestedPort int) (int, error) {
	ln, err := acquirePort(requestedPort)
	if err != nil {
		return 0, err
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/", s.handleStatic)

	s.httpServer = &http.Server{
		Handler:           withLogging(s.log, mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	port := ln.Addr().(*net.TCPAddr).Port
	printBanner(port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return 0, fmt.Errorf("serve: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	return port, nil
}

// Stop gracefully shuts down the HTTP server, releasing the bound port.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func printBanner(port int) {
	fmt.Printf("listening on http://localhost:%d\n", port)
	if name, err := localHostname(); err == nil {
		fmt.Printf("  http://%s.local:%d\n", name, port)
	}
	if ip, err := firstNonLoopbackIPv4(); err == nil {
		fmt.Printf("  http://%s:%d\n", ip, port)
	}
}

func localHostname() (string, error) {
	return hostnameLookup()
}

func firstNonLoopbackIPv4() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", errors.New("no non-loopback IPv4 address found")
}

type offerRequest struct {
	Offer webrtc.SessionDescription `json:"offer"`
}

type sessionResponse struct {
	Answer          webrtc.SessionDescription `json:"answer"`
	SessionID       string                    `json:"session_id"`
	NegotiatedCodec *string                   `json:"negotiated_codec"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		http.Error(w, "too many signalling requests", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var req offerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "parse offer: "+err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := s.negotiator.HandleOffer(r.Context(), req.Offer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := sessionResponse{Answer: result.Answer, SessionID: result.SessionID}
	if result.NegotiatedCodec != "" {
		resp.NegotiatedCodec = &result.NegotiatedCodec
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Signaling("encode session response failed", "err", err)
	}
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}
	data, err := fs.ReadFile(s.staticFS, path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType(path))
	_, _ = w.Write(data)
}

func contentType(path string) string {
	switch {
	case strings.HasSuffix(path, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(path, ".js"):
		return "application/javascript; charset=utf-8"
	case strings.HasSuffix(path, ".css"):
		return "text/css; charset=utf-8"
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
