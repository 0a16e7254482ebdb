// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package emergency

import "errors"

// Reboot is only supported on linux.
func Reboot() error {
	return errors.New("emergency: reboot not supported on this platform")
}
