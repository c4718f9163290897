package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teenjuna/framer/internal/sqlite"
)

func newRecordCmd(a *app) *cobra.Command {
	var db string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append every frame of stdin to a journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.codec()
			if err != nil {
				return err
			}

			journal, err := a.journal(cmd, db)
			if err != nil {
				return err
			}
			defer journal.Close()

			var (
				n    int
				last sqlite.Seq
			)
			for frame, err := range a.reader(cmd.InOrStdin(), c).All() {
				if err != nil {
					return fmt.Errorf("frame %d: %w", n+1, err)
				}
				if last, err = journal.Append(frame); err != nil {
					return fmt.Errorf("append frame %d: %w", n+1, err)
				}
				n++
			}

			stats, err := journal.Stats()
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}

			a.logger.Info().
				Int("recorded", n).
				Int64("last", last).
				Int("frames", stats.Frames).
				Int64("bytes", stats.Bytes).
				Msg("journal updated")

			return journal.Close()
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "journal database file (default from config, \"frames.db\")")

	return cmd
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		db    string
		after int64
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Write the frames of a journal to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.codec()
			if err != nil {
				return err
			}

			journal, err := a.journal(cmd, db)
			if err != nil {
				return err
			}
			defer journal.Close()

			writer := a.writer(cmd.OutOrStdout(), c)

			var n int
			for record, err := range journal.All(after) {
				if err != nil {
					return fmt.Errorf("read journal: %w", err)
				}
				if err := writer.Write(record.Data); err != nil {
					return fmt.Errorf("frame %d: %w", record.Seq, err)
				}
				n++
			}
			if err := writer.Flush(); err != nil {
				return err
			}

			a.logger.Debug().Int("frames", n).Int64("after", after).Msg("replayed")
			return journal.Close()
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "journal database file (default from config, \"frames.db\")")
	cmd.Flags().Int64Var(&after, "after", 0, "replay only frames with a greater sequence number")

	return cmd
}

func (a *app) journal(cmd *cobra.Command, db string) (*sqlite.Journal, error) {
	if !cmd.Flags().Changed("db") {
		db = a.cfg.DB
	}

	journal, err := sqlite.New(func(c *sqlite.Config) {
		c.URI(db)
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return journal, nil
}
