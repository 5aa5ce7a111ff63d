// Package daemon coordinates the long-running logsweep process.
//
// A Daemon is built once per process and owns everything the sweep needs:
// the working directory captured at startup, the configuration store, the
// PID guard, the signal router and the sweep cycle. It implements
// signals.Target, so SIGHUP and SIGTERM reach it only through the router.
//
// Startup order matters: the guard clears a previous instance, the process
// detaches (when started by Launch), the PID record is written, and only
// then are the real signal handlers installed and the first pass run.
//
// The PID record is left in place on shutdown; the next instance's guard
// finds it stale and removes it.
package daemon
