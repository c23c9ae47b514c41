package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/devfarm/adbkit"
	"github.com/devfarm/adbkit/adb"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List attached devices and their states",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := preflight(cmd.Context(), newInvoker())
			if err != nil {
				return err
			}
			devices, err := reg.AllDevices(cmd.Context())
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Println("no devices attached")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERIAL\tSTATE")
			for _, dev := range devices {
				fmt.Fprintf(w, "%s\t%s\n", dev.Serial, dev.State)
			}
			return w.Flush()
		},
	}
}

func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <ip:port>",
		Short: "Connect a device over the network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := preflight(cmd.Context(), newInvoker())
			if err != nil {
				return err
			}
			ok, msg, err := reg.Connect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("connect %s failed: %s", args[0], msg)
			}
			fmt.Println(msg)
			return nil
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Dump the target device's property table",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := preflight(cmd.Context(), newInvoker())
			if err != nil {
				return err
			}
			serial, err := resolveSerial(cmd.Context(), reg)
			if err != nil {
				return err
			}
			sess := adb.NewSession(serial, newInvoker())
			defer sess.Close()
			cmds := adb.NewCommands(serial, newInvoker(), sess)

			props, err := cmds.Properties(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(props)
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch device connect/disconnect events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := preflight(cmd.Context(), newInvoker())
			if err != nil {
				return err
			}
			watcher := adb.NewWatcher(reg)
			group := adbkit.NewSafeGroup(cmd.Context())
			group.GoSafe("device-watcher", watcher.Run)
			group.GoSafe("event-printer", func(ctx context.Context) error {
				for change := range watcher.Events() {
					log.Info().
						Str("serial", change.Serial).
						Str("from", string(change.Old)).
						Str("to", string(change.New)).
						Msg("device state change")
				}
				return nil
			})
			return group.Wait()
		},
	}
}
