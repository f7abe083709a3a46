//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package udp

import "syscall"

// Port sharing is unavailable here; only one client per host can listen.
func reuseControl(_, _ string, _ syscall.RawConn) error { return nil }

func broadcastControl(_, _ string, _ syscall.RawConn) error { return nil }
