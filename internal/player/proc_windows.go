//go:build windows

package player

import (
	"os/exec"
	"strconv"
)

func detach(cmd *exec.Cmd) {}

// killTree terminates the player and its children via taskkill; plain Kill
// would leave decoder child processes holding the audio device.
func killTree(cmd *exec.Cmd) error {
	kill := exec.Command("taskkill", "/PID", strconv.Itoa(cmd.Process.Pid), "/T", "/F")
	if err := kill.Run(); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
