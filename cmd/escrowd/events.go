package main

import (
	"encoding/json"

	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/eventlog"
	"github.com/spf13/cobra"
)

func newEventsCommand(cfg *Config) *cobra.Command {
	var (
		action string
		escrow string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the escrow events recorded by the node",
		Long: "Print the newest events of the SQLite event log, optionally filtered by action. " +
			"With --escrow, print the whole history of one escrow, oldest first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.EventsDB == "" {
				return errors.Wrap(errors.ErrInvalidInput, "no event log configured, set --events-db")
			}
			store, err := eventlog.Open(cfg.EventsDB)
			if err != nil {
				return err
			}
			defer store.Close()

			var events []eventlog.Event
			if escrow != "" {
				events, err = store.History(cmd.Context(), escrow)
			} else {
				events, err = store.List(cmd.Context(), action, limit)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range events {
				if err := enc.Encode(e); err != nil {
					return errors.Wrap(errors.ErrInvalidInput, err.Error())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.EventsDB, "events-db", cfg.EventsDB, "path of the SQLite event log")
	cmd.Flags().StringVar(&action, "action", "", "only events with this action, for example escrow/release")
	cmd.Flags().StringVar(&escrow, "escrow", "", "hex id of one escrow")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	return cmd
}
