package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	envload "github.com/devfarm/adbkit/internal"
	"github.com/devfarm/adbkit/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const envDebug = "ADBKIT_DEBUG"

var rootCmd = &cobra.Command{
	Use:   "adbkit",
	Short: "Headless console for Android devices over adb",
	Long:  `adbkit 通过 adb 管理安卓设备：设备枚举与 WiFi 连接、快速同步命令（exec-out 失败自动降级 shell）、持久化交互终端、远程文件浏览、应用安装与导出，统一输出结构化日志。`,
}

var (
	rootSerial  string
	rootADBPath string
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	if err := envload.Ensure(); err != nil {
		log.Warn().Err(err).Msg("load .env failed")
	}
	level := zerolog.InfoLevel
	if config.Bool(envDebug, false) {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if path := envload.LoadedPath(); path != "" {
		log.Debug().Str("dotenv", path).Msg("loaded .env")
	}
	rootCmd.PersistentFlags().StringVar(&rootSerial, "serial", "", "设备序列号，默认自动选择唯一在线设备")
	rootCmd.PersistentFlags().StringVar(&rootADBPath, "adb-path", "", "adb 可执行文件路径覆盖 ADBKIT_ADB_PATH")
	rootCmd.AddCommand(
		newDevicesCmd(),
		newConnectCmd(),
		newWatchCmd(),
		newShellCmd(),
		newLsCmd(),
		newPullCmd(),
		newPushCmd(),
		newInstallCmd(),
		newScreenshotCmd(),
		newPackagesCmd(),
		newExportCmd(),
		newRebootCmd(),
		newInfoCmd(),
		newHistoryCmd(),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("adbkit command failed")
	}
}
