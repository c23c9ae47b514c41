package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/devfarm/adbkit/adb"
	"github.com/spf13/cobra"
)

func newLsCmd() *cobra.Command {
	var flagParent bool

	cmd := &cobra.Command{
		Use:   "ls [remote-path]",
		Short: "List a remote directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "/sdcard"
			if len(args) == 1 {
				// Normalizes `.` and `..` segments in the argument.
				dir = adb.JoinRemote(args[0])
			}
			if flagParent {
				dir = adb.ParentRemote(dir)
			}
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

			entries, err := cmds.ListDir(cmd.Context(), dir)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, entry := range entries {
				kind := "file"
				if entry.Dir {
					kind = "dir"
				}
				fmt.Fprintf(w, "%s\t%s\n", kind, entry.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&flagParent, "parent", false, "列出给定路径的上级目录")
	return cmd
}

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <remote> <local>",
		Short: "Copy a remote file to the host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, "pull", args[0], args[1])
		},
	}
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <local> <remote>",
		Short: "Copy a local file to the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, "push", args[0], args[1])
		},
	}
}

func runTransfer(cmd *cobra.Command, direction, src, dst string) error {
	reg, err := preflight(cmd.Context(), newInvoker())
	if err != nil {
		return err
	}
	serial, err := resolveSerial(cmd.Context(), reg)
	if err != nil {
		return err
	}
	cmds := adb.NewCommands(serial, newInvoker(), nil)

	var res adb.Result
	if direction == "pull" {
		res, err = cmds.Pull(cmd.Context(), src, dst)
	} else {
		res, err = cmds.Push(cmd.Context(), src, dst)
	}
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s failed: %s", direction, strings.TrimSpace(res.Stderr))
	}
	fmt.Print(res.Stdout)
	return nil
}

func newScreenshotCmd() *cobra.Command {
	var flagOutDir string

	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Capture the device screen to a local PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := preflight(cmd.Context(), newInvoker())
			if err != nil {
				return err
			}
			serial, err := resolveSerial(cmd.Context(), reg)
			if err != nil {
				return err
			}
			cmds := adb.NewCommands(serial, newInvoker(), nil)
			local, err := cmds.Screenshot(cmd.Context(), flagOutDir)
			if err != nil {
				return err
			}
			fmt.Println(local)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagOutDir, "out", ".", "截图保存目录")
	return cmd
}
