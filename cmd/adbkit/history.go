package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/devfarm/adbkit/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var flagLimit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent synchronous command executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open("")
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), flagLimit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("history is empty")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSERIAL\tTIER\tDURATION\tCOMMAND")
			for _, e := range entries {
				status := e.Tier
				if e.TimedOut {
					status += " (timeout)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.Serial, status, e.Duration.Round(time.Millisecond), e.Command)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&flagLimit, "limit", "n", 20, "显示条数")
	return cmd
}
