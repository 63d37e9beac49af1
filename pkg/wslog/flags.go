package wslog

import (
	"flag"
	"fmt"
)

// Flags holds the raw flag values registered by RegisterFlags, before
// they're resolved into a Config.
type Flags struct {
	Level       string
	JSON        bool
	LogFile     string
	DebugPad    bool
	DebugTrack  bool
	DebugSignal bool
	DebugWebRTC bool
	DebugAll    bool
}

// RegisterFlags registers logging flags on fs and returns the struct they
// populate. Only long flag names are registered; there are no shorthands.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Level, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&f.JSON, "log-json", false, "emit logs as JSON instead of text")
	fs.StringVar(&f.LogFile, "log-file", "", "write logs to this file instead of stdout")
	fs.BoolVar(&f.DebugPad, "debug-pad", false, "enable pad classification debug logging")
	fs.BoolVar(&f.DebugTrack, "debug-track", false, "enable track write debug logging")
	fs.BoolVar(&f.DebugSignal, "debug-signaling", false, "enable signalling debug logging")
	fs.BoolVar(&f.DebugWebRTC, "debug-webrtc", false, "enable webrtc peer connection debug logging")
	fs.BoolVar(&f.DebugAll, "debug-all", false, "enable all debug categories")
	return f
}

// ToConfig resolves the parsed flags into a Config, opening LogFile if set.
// Enabling any debug category forces the level to debug regardless of
// -log-level, matching the teacher's "debug flags imply debug level"
// behavior.
func (f *Flags) ToConfig() (*Config, error) {
	cfg := &Config{
		Level:             ParseLevel(f.Level),
		JSON:              f.JSON,
		EnabledCategories: make(map[Category]bool),
	}

	if f.DebugPad {
		cfg.EnabledCategories[CategoryPad] = true
	}
	if f.DebugTrack {
		cfg.EnabledCategories[CategoryTrack] = true
	}
	if f.DebugSignal {
		cfg.EnabledCategories[CategorySignaling] = true
	}
	if f.DebugWebRTC {
		cfg.EnabledCategories[CategoryWebRTC] = true
	}
	if f.DebugAll {
		cfg.EnabledCategories[CategoryAll] = true
	}
	if len(cfg.EnabledCategories) > 0 {
		cfg.Level = ParseLevel("debug")
	}

	if f.LogFile != "" {
		file, err := openLogFile(f.LogFile)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", f.LogFile, err)
		}
		cfg.Output = file
	}

	return cfg, nil
}

// String summarizes the enabled flags for a single startup log line.
func (f *Flags) String() string {
	s := fmt.Sprintf("level=%s json=%v", f.Level, f.JSON)
	if f.DebugAll {
		return s + " debug=all"
	}
	var cats []string
	if f.DebugPad {
		cats = append(cats, "pad")
	}
	if f.DebugTrack {
		cats = append(cats, "track")
	}
	if f.DebugSignal {
		cats = append(cats, "signaling")
	}
	if f.DebugWebRTC {
		cats = append(cats, "webrtc")
	}
	if len(cats) == 0 {
		return s
	}
	return fmt.Sprintf("%s debug=%v", s, cats)
}
