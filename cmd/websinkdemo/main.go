// Command websinkdemo wires an H.264 source — synthetic, or a looped
// Annex-B file given via -input-file — into the sink element through the
// pad contract and serves it over WebRTC, so the element can be exercised
// end-to-end without a real upstream pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/videologyinc/websink-go/pkg/pad"
	"github.com/videologyinc/websink-go/pkg/sink"
	"github.com/videologyinc/websink-go/pkg/wslog"
)

func main() {
	fs := flag.NewFlagSet("websinkdemo", flag.ExitOnError)
	port := fs.Int("port", 8091, "listening port, 0 for any free port")
	stunServer := fs.String("stun-server", "stun:stun.l.google.com:19302", "STUN server URI, empty disables STUN")
	isLive := fs.Bool("is-live", false, "skip track writes while no peers are attached")
	inputFile := fs.String("input-file", "", "raw Annex-B H.264 elementary stream to loop instead of the synthetic generator")
	logFlags := wslog.RegisterFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "websinkdemo: demo harness for the WebRTC sink element\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", fs.Name())
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	logCfg, err := logFlags.ToConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "log config: %v\n", err)
		os.Exit(1)
	}
	log := wslog.New(logCfg)
	wslog.SetDefault(log)

	settings := sink.Settings{Port: *port, StunServer: *stunServer, IsLive: *isLive}
	element := sink.New(settings, log)

	boundPort, err := element.Start()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("websink-go demo")
	fmt.Printf("  listening: http://localhost:%d\n", boundPort)
	fmt.Printf("  is_live:   %v\n", settings.IsLive)
	fmt.Printf("  logging:   %s\n", logFlags.String())

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	var source pad.Source
	if *inputFile != "" {
		source = newFileH264Source(*inputFile, 33*time.Millisecond)
	} else {
		source = newSyntheticH264Source(33 * time.Millisecond)
	}
	padName := element.RequestPad()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- source.Run(ctx, element, padName)
	}()

	select {
	case <-ctx.Done():
	case err := <-runErrCh:
		if err != nil {
			log.Error("source stopped", "err", err)
		}
	}

	source.ReleasePad(padName)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := element.Stop(stopCtx); err != nil {
		log.Error("stop failed", "err", err)
		os.Exit(1)
	}

	fmt.Println("graceful shutdown complete")
}
