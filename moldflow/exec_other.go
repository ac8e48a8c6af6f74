//go:build !windows

package moldflow

import "os/exec"

func hideWindow(_ *exec.Cmd) {}
