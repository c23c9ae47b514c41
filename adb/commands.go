package adb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Device-side scratch locations used by the install and screenshot flows.
const (
	remoteInstallTemp    = "/data/local/tmp/adbkit_install.apk"
	remoteScreenshotTemp = "/sdcard/adbkit_screenshot.png"
)

var packagePathRe = regexp.MustCompile(`package:(.+)`)

// Commands bundles the higher-level device operations on top of one-shot
// invocations and the persistent shell session.
type Commands struct {
	serial  string
	run     Runner
	sess    *Session
	timeout time.Duration
}

// NewCommands builds the operation set for one device. sess carries the
// synchronous fallback path and may be nil when only the pure one-shot
// operations (Install, Push, Pull, Screenshot, Reboot) are used. File
// transfers run without a deadline, since their duration scales with payload
// size.
func NewCommands(serial string, inv *Invoker, sess *Session) *Commands {
	return &Commands{serial: serial, run: inv, sess: sess, timeout: DefaultSyncTimeout()}
}

// Install installs an apk directly (`adb install`). The Result carries the
// tool's verdict; a non-zero exit is a normal result the caller may follow
// with StepInstall.
func (c *Commands) Install(ctx context.Context, apk string, opts ...string) (Result, error) {
	args := append([]string{"install"}, opts...)
	args = append(args, apk)
	return c.run.Run(ctx, c.serial, 0, args...)
}

// StepInstall is the fallback for devices where direct install fails: push
// the apk to device-local temp storage, install through pm, then clean up.
// pm reports success as prose, so the verdict comes from stdout text.
func (c *Commands) StepInstall(ctx context.Context, apk string, opts ...string) error {
	res, err := c.Push(ctx, apk, remoteInstallTemp)
	if err != nil {
		return pkgerrors.Wrap(err, "push apk for step install")
	}
	if res.ExitCode != 0 {
		return pkgerrors.Errorf("push apk failed: %s", strings.TrimSpace(res.Stderr))
	}
	pmCmd := "pm install"
	if len(opts) > 0 {
		pmCmd += " " + strings.Join(opts, " ")
	}
	pmCmd += " " + remoteInstallTemp
	stdout, stderr := c.sess.ExecuteSync(ctx, pmCmd, c.timeout)
	c.sess.ExecuteSync(ctx, "rm "+remoteInstallTemp, c.timeout)
	if !strings.Contains(stdout, "Success") {
		return pkgerrors.Errorf("step install failed: %s", firstNonEmpty(stderr, stdout))
	}
	return nil
}

// Push copies a local file to the device.
func (c *Commands) Push(ctx context.Context, local, remote string) (Result, error) {
	return c.run.Run(ctx, c.serial, 0, "push", local, remote)
}

// Pull copies a remote file to the host.
func (c *Commands) Pull(ctx context.Context, remote, local string) (Result, error) {
	return c.run.Run(ctx, c.serial, 0, "pull", remote, local)
}

// Screenshot captures the device screen into localDir and returns the local
// file path. The device-side temp file is removed whether or not the pull
// succeeded.
func (c *Commands) Screenshot(ctx context.Context, localDir string) (string, error) {
	res, err := c.run.Run(ctx, c.serial, c.timeout, "shell", "screencap -p "+remoteScreenshotTemp)
	if err != nil {
		return "", pkgerrors.Wrap(err, "screencap")
	}
	if res.ExitCode != 0 {
		return "", pkgerrors.Errorf("screencap failed: %s", strings.TrimSpace(res.Stderr))
	}
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", pkgerrors.Wrap(err, "create screenshot dir")
	}
	local := filepath.Join(localDir, fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405")))
	pullRes, pullErr := c.Pull(ctx, remoteScreenshotTemp, local)
	if _, rmErr := c.run.Run(ctx, c.serial, c.timeout, "shell", "rm "+remoteScreenshotTemp); rmErr != nil {
		log.Warn().Err(rmErr).Str("serial", c.serial).Msg("remove remote screenshot temp failed")
	}
	if pullErr != nil {
		return "", pkgerrors.Wrap(pullErr, "pull screenshot")
	}
	if pullRes.ExitCode != 0 {
		return "", pkgerrors.Errorf("pull screenshot failed: %s", strings.TrimSpace(pullRes.Stderr))
	}
	return local, nil
}

// Packages lists installed package names, third-party only unless
// includeSystem is set.
func (c *Commands) Packages(ctx context.Context, includeSystem bool) ([]string, error) {
	cmd := "pm list packages -3"
	if includeSystem {
		cmd = "pm list packages"
	}
	stdout, stderr := c.sess.ExecuteSync(ctx, cmd, c.timeout)
	if stdout == "" {
		return nil, pkgerrors.Errorf("list packages failed: %s", firstNonEmpty(stderr, "no output"))
	}
	var packages []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if pkg, ok := strings.CutPrefix(line, "package:"); ok && pkg != "" {
			packages = append(packages, pkg)
		}
	}
	return packages, nil
}

// PackagePath resolves the on-device apk path of an installed package.
func (c *Commands) PackagePath(ctx context.Context, pkg string) (string, error) {
	stdout, stderr := c.sess.ExecuteSync(ctx, "pm path "+pkg, c.timeout)
	if stdout == "" {
		return "", pkgerrors.Errorf("pm path %s failed: %s", pkg, firstNonEmpty(stderr, "no output"))
	}
	m := packagePathRe.FindStringSubmatch(stdout)
	if m == nil {
		return "", pkgerrors.Errorf("cannot parse pm path output for %s: %s", pkg, strings.TrimSpace(stdout))
	}
	return strings.TrimSpace(m[1]), nil
}

// ExportPackage pulls an installed package's apk into dir as <pkg>.apk and
// returns the local path.
func (c *Commands) ExportPackage(ctx context.Context, pkg, dir string) (string, error) {
	apkPath, err := c.PackagePath(ctx, pkg)
	if err != nil {
		return "", err
	}
	local := filepath.Join(dir, pkg+".apk")
	res, err := c.Pull(ctx, apkPath, local)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "pull %s", pkg)
	}
	if res.ExitCode != 0 {
		return "", pkgerrors.Errorf("pull %s failed: %s", pkg, strings.TrimSpace(res.Stderr))
	}
	return local, nil
}

// Reboot asks the device to restart.
func (c *Commands) Reboot(ctx context.Context) error {
	res, err := c.run.Run(ctx, c.serial, c.timeout, "reboot")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return pkgerrors.Errorf("reboot failed: %s", strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Properties dumps the device property table (`getprop`).
func (c *Commands) Properties(ctx context.Context) (string, error) {
	stdout, stderr := c.sess.ExecuteSync(ctx, "getprop", c.timeout)
	if stdout == "" {
		return "", pkgerrors.Errorf("getprop failed: %s", firstNonEmpty(stderr, "no output"))
	}
	return stdout, nil
}

// ListDir enumerates a remote directory. `ls -1p` is tried first; old
// devices that lack -1 fall back to `ls -p`.
func (c *Commands) ListDir(ctx context.Context, dir string) ([]ListingEntry, error) {
	stdout, stderr := c.sess.ExecuteSync(ctx, "ls -1p "+shellQuote(dir), c.timeout)
	if stdout == "" {
		stdout, stderr = c.sess.ExecuteSync(ctx, "ls -p "+shellQuote(dir), c.timeout)
	}
	if stdout == "" {
		return nil, pkgerrors.Errorf("list %s failed: %s", dir, firstNonEmpty(stderr, "unknown error"))
	}
	return ParseListing(stdout), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
