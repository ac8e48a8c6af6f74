//go:build !windows && !plan9

package system

import (
	"log"
	"log/syslog"
)

// EnableSyslog sends the standard logger output to syslog under tag
func EnableSyslog(tag string) error {
	w, err := syslog.New(syslog.LOG_NOTICE|syslog.LOG_DAEMON, tag)
	if err != nil {
		return err
	}

	log.SetOutput(w)
	// syslog adds its own timestamps
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))

	return nil
}
