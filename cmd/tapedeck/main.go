// ABOUTME: Entry point for the Tapedeck playback engine
// ABOUTME: Parses CLI flags, decodes the input and wires engine, TUI and remote
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/Tapedeck-Audio/tapedeck-go/internal/discovery"
	"github.com/Tapedeck-Audio/tapedeck-go/internal/remote"
	"github.com/Tapedeck-Audio/tapedeck-go/internal/ui"
	"github.com/Tapedeck-Audio/tapedeck-go/internal/version"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/decode"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/output"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/player"
)

var CLI struct {
	Input      string  `arg:"" name:"input" help:"Audio file to play (WAV or FLAC)" optional:""`
	Backend    string  `help:"Output backend: oto, malgo or null" default:"oto"`
	SampleRate int     `help:"Requested device sample rate" default:"48000"`
	Channels   int     `help:"Requested device channel count" default:"2"`
	Volume     float64 `help:"Initial volume (0.0 to 1.0)" default:"1.0"`
	Remote     int     `help:"Enable WebSocket remote control on this port (0 = off)" default:"0"`
	MDNS       bool    `name:"mdns" help:"Advertise the remote control endpoint via mDNS"`
	Name       string  `help:"Instance name for mDNS (default: hostname-tapedeck)"`
	LogFile    string  `help:"Log file path" default:"tapedeck.log"`
	NoTUI      bool    `name:"no-tui" help:"Disable TUI, stream logs to stdout instead"`
	Version    bool    `help:"Show version information"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("tapedeck"),
		kong.Description("Sample-accurate audio playback from the terminal."),
		kong.UsageOnError(),
	)

	if CLI.Version {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		os.Exit(0)
	}

	if CLI.Input == "" {
		fmt.Fprintln(os.Stderr, "tapedeck: <input> is required")
		os.Exit(1)
	}

	if err := run(); err != nil {
		log.Printf("Fatal: %v", err)
		fmt.Fprintf(os.Stderr, "tapedeck: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	useTUI := !CLI.NoTUI

	f, err := os.OpenFile(CLI.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file so the screen stays clean
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s %s", version.Product, version.Version)

	buf, meta, err := decode.FromFile(CLI.Input)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", CLI.Input, err)
	}

	device, err := output.New(CLI.Backend)
	if err != nil {
		return err
	}

	var server *remote.Server

	engine, err := player.New(player.Config{
		Device: device,
		RequestedFormat: audio.Format{
			SampleRate: CLI.SampleRate,
			Channels:   CLI.Channels,
			Encoding:   audio.FormatFloat32LE,
		},
		OnStateChange: func(st player.Status) {
			if server != nil {
				server.Broadcast(st)
			}
		},
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	engine.SetVolume(CLI.Volume)

	if _, err := engine.Load(buf); err != nil {
		return fmt.Errorf("failed to load track: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	if CLI.Remote > 0 {
		server = remote.New(remote.Config{Port: CLI.Remote, Name: instanceName()}, engine)
		go func() {
			if err := server.Start(); err != nil {
				log.Printf("Remote control error: %v", err)
			}
		}()
		defer server.Stop()

		if CLI.MDNS {
			mgr := discovery.NewManager(discovery.Config{
				InstanceName: instanceName(),
				Port:         CLI.Remote,
			})
			if err := mgr.Advertise(); err != nil {
				log.Printf("Failed to start mDNS advertisement: %v", err)
			} else {
				defer mgr.Stop()
			}
		}
	}

	if err := engine.Play(); err != nil {
		return err
	}

	if useTUI {
		return ui.Run(engine, device.AnalysisTap(), displayName(meta))
	}

	// Headless mode: run until the track ends or a signal arrives.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			st := engine.Status()
			if !st.IsPlaying {
				close(done)
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			time.Sleep(player.StatusInterval)
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-done:
		log.Printf("Playback finished")
	}

	return nil
}

func instanceName() string {
	if CLI.Name != "" {
		return CLI.Name
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-tapedeck", hostname)
}

func displayName(meta decode.Metadata) string {
	if meta.Title != "" {
		return meta.Title
	}
	return filepath.Base(CLI.Input)
}
