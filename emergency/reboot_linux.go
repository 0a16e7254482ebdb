// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package emergency

import "golang.org/x/sys/unix"

// Reboot syncs filesystems and restarts the machine. It requires
// CAP_SYS_BOOT.
func Reboot() error {
	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
