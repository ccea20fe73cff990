//go:build !windows

package player

import (
	"os/exec"
	"syscall"
)

// detach puts the player in its own process group so killTree can take out
// any children (ffplay forks decoder helpers on some builds).
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killTree terminates the whole process group with SIGTERM, falling back to
// killing just the leader when the group is already gone.
func killTree(cmd *exec.Cmd) error {
	pid := cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return cmd.Process.Kill()
	}
	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
