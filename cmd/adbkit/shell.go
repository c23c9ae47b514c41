package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/devfarm/adbkit/adb"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// interactivePollInterval paces the output drain loop of the interactive
// terminal; PollOutputLine itself never blocks.
const interactivePollInterval = 50 * time.Millisecond

func newShellCmd() *cobra.Command {
	var flagTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "shell [command...]",
		Short: "Run a remote command, or open an interactive terminal",
		Long:  `带参数时通过 exec-out（降级 shell）同步执行单条命令；不带参数时打开持久化交互终端，逐行发送命令并流式打印输出，输入 exit 或 Ctrl-D 退出。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := preflight(cmd.Context(), newInvoker())
			if err != nil {
				return err
			}
			serial, err := resolveSerial(cmd.Context(), reg)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				return runOneShot(cmd, serial, strings.Join(args, " "), flagTimeout)
			}
			return runInteractive(cmd, serial)
		},
	}
	cmd.Flags().DurationVar(&flagTimeout, "timeout", adb.DefaultSyncTimeout(), "单层执行超时（两层降级最多耗时两倍）")
	return cmd
}

func runOneShot(cmd *cobra.Command, serial, command string, timeout time.Duration) error {
	store := openHistory()
	if store != nil {
		defer store.Close()
	}
	sess := adb.NewSession(serial, newInvoker())
	defer sess.Close()
	recordSync(store, sess)

	stdout, stderr := sess.ExecuteSync(cmd.Context(), command, timeout)
	if stdout != "" {
		fmt.Print(stdout)
	}
	if strings.TrimSpace(stderr) != "" {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(stderr))
	}
	return nil
}

func runInteractive(cmd *cobra.Command, serial string) error {
	sess := adb.NewSession(serial, newInvoker())
	defer sess.Close()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interactivePollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				// drain whatever is left before exiting
				for {
					line, ok := sess.PollOutputLine()
					if !ok {
						return
					}
					fmt.Println(line)
				}
			case <-ticker.C:
				for {
					line, ok := sess.PollOutputLine()
					if !ok {
						break
					}
					fmt.Println(line)
				}
			}
		}
	}()
	defer close(done)

	log.Info().Str("serial", serial).Msg("interactive shell ready, type exit to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}
		if command == "exit" {
			return nil
		}
		if !sess.ExecuteAsync(command) {
			// session could not be revived: degrade to a one-shot call
			log.Warn().Str("serial", serial).Msg("interactive session dead, running command one-shot")
			stdout, stderr := sess.ExecuteSync(cmd.Context(), command, adb.DefaultSyncTimeout())
			if stdout != "" {
				fmt.Print(stdout)
			}
			if strings.TrimSpace(stderr) != "" {
				fmt.Fprintln(os.Stderr, strings.TrimSpace(stderr))
			}
		}
	}
	return scanner.Err()
}
