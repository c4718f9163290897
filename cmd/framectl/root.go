package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/teenjuna/framer/codec"
	"github.com/teenjuna/framer/codec/cobs"
	"github.com/teenjuna/framer/codec/prefix"
	"github.com/teenjuna/framer/serial/raw"
)

// app is the state shared by all commands, resolved before any of them runs.
type app struct {
	configFile string
	flags      config

	cfg    config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "framectl",
		Short: "Frame, unframe and inspect streams of opaque frames",
		Long: `framectl converts between lines, COBS framed and length prefixed streams,
records frames into a SQLite journal and replays them, and compares the
overhead of the framing codecs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (.toml, .yaml or .yml)")
	flags.StringVar(&a.flags.Codec, "codec", "", `framing codec: "cobs" or "prefix" (default "cobs")`)
	flags.StringVar(&a.flags.Width, "width", "", `prefix width: "fixed32" or "varint" (default "fixed32")`)
	flags.IntVar(&a.flags.MaxFrame, "max-frame", 0, "largest accepted frame in bytes, 0 is unlimited")
	flags.StringVar(&a.flags.LogLevel, "log-level", "", "log level (default \"info\", env "+logLevelEnv+")")

	root.AddCommand(
		newEncodeCmd(a),
		newDecodeCmd(a),
		newTranscodeCmd(a),
		newRecordCmd(a),
		newReplayCmd(a),
		newAnalyzeCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if level := os.Getenv(logLevelEnv); level != "" {
		cfg.LogLevel = level
	}

	flags := cmd.Flags()
	if flags.Changed("codec") {
		cfg.Codec = a.flags.Codec
	}
	if flags.Changed("width") {
		cfg.Width = a.flags.Width
	}
	if flags.Changed("max-frame") {
		cfg.MaxFrame = a.flags.MaxFrame
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.LogLevel
	}
	if cfg.MaxFrame < 0 {
		return fmt.Errorf("max frame can't be < 0")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	a.cfg = cfg
	a.logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		TimeFormat: time.RFC3339,
	}).
		Level(level).
		With().
		Timestamp().
		Str("app", "framectl").
		Logger()

	return nil
}

// codec returns the codec configured by the global flags.
func (a *app) codec() (codec.Codec[[]byte], error) {
	return newCodec(a.cfg.Codec, a.cfg.Width, a.cfg.MaxFrame)
}

func newCodec(name, width string, maxFrame int) (codec.Codec[[]byte], error) {
	switch name {
	case "cobs":
		return cobs.New[[]byte](raw.New(), func(c *cobs.Config) {
			c.MaxFrame(maxFrame)
		}), nil
	case "prefix":
		w, err := prefix.ParseWidth(width)
		if err != nil {
			return nil, err
		}
		return prefix.New[[]byte](raw.New(), func(c *prefix.Config) {
			c.Width(w)
			c.MaxFrame(maxFrame)
		}), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
