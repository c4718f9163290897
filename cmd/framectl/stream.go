package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teenjuna/framer"
	"github.com/teenjuna/framer/codec"
)

const (
	flushSize = 64 << 10
	maxLine   = 16 << 20
)

func newEncodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "encode",
		Short: "Turn every line of stdin into one frame on stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.codec()
			if err != nil {
				return err
			}

			writer := a.writer(cmd.OutOrStdout(), c)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64<<10), maxLine)

			var n int
			for scanner.Scan() {
				if err := writer.Write(scanner.Bytes()); err != nil {
					return fmt.Errorf("frame line %d: %w", n+1, err)
				}
				n++
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read lines: %w", err)
			}
			if err := writer.Flush(); err != nil {
				return err
			}

			a.logger.Debug().Int("frames", n).Str("codec", a.cfg.Codec).Msg("encoded")
			return nil
		},
	}
}

func newDecodeCmd(a *app) *cobra.Command {
	var asHex bool

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Write every frame of stdin as a line on stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.codec()
			if err != nil {
				return err
			}

			out := bufio.NewWriter(cmd.OutOrStdout())

			var n int
			for frame, err := range a.reader(cmd.InOrStdin(), c).All() {
				if err != nil {
					return fmt.Errorf("frame %d: %w", n+1, err)
				}
				if asHex {
					_, err = out.WriteString(hex.EncodeToString(frame))
				} else {
					_, err = out.Write(frame)
				}
				if err == nil {
					err = out.WriteByte('\n')
				}
				if err != nil {
					return fmt.Errorf("write frame %d: %w", n+1, err)
				}
				n++
			}

			a.logger.Debug().Int("frames", n).Str("codec", a.cfg.Codec).Msg("decoded")
			return out.Flush()
		},
	}

	cmd.Flags().BoolVar(&asHex, "hex", false, "write frames hex encoded")

	return cmd
}

func newTranscodeCmd(a *app) *cobra.Command {
	var to, toWidth string

	cmd := &cobra.Command{
		Use:   "transcode",
		Short: "Re-frame a stream with another codec",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.codec()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("to-width") {
				toWidth = a.cfg.Width
			}
			out, err := newCodec(to, toWidth, a.cfg.MaxFrame)
			if err != nil {
				return err
			}

			writer := a.writer(cmd.OutOrStdout(), out)

			var n int
			for frame, err := range a.reader(cmd.InOrStdin(), in).All() {
				if err != nil {
					return fmt.Errorf("frame %d: %w", n+1, err)
				}
				if err := writer.Write(frame); err != nil {
					return fmt.Errorf("frame %d: %w", n+1, err)
				}
				n++
			}
			if err := writer.Flush(); err != nil {
				return err
			}

			a.logger.Debug().
				Int("frames", n).
				Str("from", a.cfg.Codec).
				Str("to", to).
				Msg("transcoded")
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "prefix", `target codec: "cobs" or "prefix"`)
	cmd.Flags().StringVar(&toWidth, "to-width", "", "target prefix width (default is --width)")

	return cmd
}

func (a *app) reader(r io.Reader, c codec.Codec[[]byte]) *framer.Reader[[]byte] {
	return framer.NewReader(r, c, func(cfg *framer.Config) {
		cfg.Logger(a.logger)
		if a.cfg.MaxFrame > 0 {
			cfg.MaxBuffered(a.cfg.MaxFrame + 16)
		}
	})
}

func (a *app) writer(w io.Writer, c codec.Codec[[]byte]) *framer.Writer[[]byte] {
	return framer.NewWriter(w, c, func(cfg *framer.Config) {
		cfg.Logger(a.logger)
		cfg.FlushSize(flushSize)
	})
}
