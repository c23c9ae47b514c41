package main

import (
	"fmt"
	"strings"

	"github.com/devfarm/adbkit/adb"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newInstallCmd() *cobra.Command {
	var (
		flagGrant     bool
		flagTest      bool
		flagReinstall bool
		flagDowngrade bool
		flagNoStep    bool
	)

	cmd := &cobra.Command{
		Use:   "install <apk>",
		Short: "Install an apk, falling back to push + pm install",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []string
			if flagGrant {
				opts = append(opts, "-g")
			}
			if flagTest {
				opts = append(opts, "-t")
			}
			if flagReinstall {
				opts = append(opts, "-r")
			}
			if flagDowngrade {
				opts = append(opts, "-d")
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

			res, err := cmds.Install(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			if res.ExitCode == 0 {
				fmt.Println("installed")
				return nil
			}
			if flagNoStep {
				return fmt.Errorf("install failed: %s", strings.TrimSpace(res.Stderr))
			}
			log.Warn().Str("serial", serial).Str("stderr", strings.TrimSpace(res.Stderr)).
				Msg("direct install failed, trying step install")
			if err := cmds.StepInstall(cmd.Context(), args[0], opts...); err != nil {
				return err
			}
			fmt.Println("installed (step install)")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&flagGrant, "grant", "g", false, "授予所有运行时权限（-g）")
	cmd.Flags().BoolVarP(&flagTest, "test", "t", false, "允许测试包（-t)")
	cmd.Flags().BoolVarP(&flagReinstall, "reinstall", "r", false, "重新安装并保留数据（-r）")
	cmd.Flags().BoolVarP(&flagDowngrade, "downgrade", "d", false, "允许降级安装（-d）")
	cmd.Flags().BoolVar(&flagNoStep, "no-step", false, "禁用 push + pm install 降级")
	return cmd
}

func newPackagesCmd() *cobra.Command {
	var flagSystem bool

	cmd := &cobra.Command{
		Use:   "packages",
		Short: "List installed packages",
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

			packages, err := cmds.Packages(cmd.Context(), flagSystem)
			if err != nil {
				return err
			}
			for _, pkg := range packages {
				fmt.Println(pkg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagSystem, "system", false, "包含系统应用")
	return cmd
}

func newExportCmd() *cobra.Command {
	var flagOutDir string

	cmd := &cobra.Command{
		Use:   "export <package>",
		Short: "Export an installed package's apk",
		Args:  cobra.ExactArgs(1),
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

			local, err := cmds.ExportPackage(cmd.Context(), args[0], flagOutDir)
			if err != nil {
				return err
			}
			fmt.Println(local)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagOutDir, "out", ".", "apk 导出目录")
	return cmd
}

func newRebootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reboot",
		Short: "Reboot the device",
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
			if err := cmds.Reboot(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("reboot requested")
			return nil
		},
	}
}
