//go:build windows || plan9

package system

import "errors"

// EnableSyslog is not supported on this platform
func EnableSyslog(_ string) error {
	return errors.New("Syslog not supported on this platform")
}
