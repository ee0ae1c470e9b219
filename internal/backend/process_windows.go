//go:build windows

package backend

import "os/exec"

// configureProcess keeps the default cancellation, which kills the backend
// process itself.
func configureProcess(c *exec.Cmd) {}
