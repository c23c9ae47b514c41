//go:build !windows

package adb

import "os/exec"

// hideConsole is a no-op outside Windows; there is no console window to hide.
func hideConsole(cmd *exec.Cmd) {}
