// Command logsweep runs and controls the log sweeping daemon.
//
// "logsweep start" validates the configuration and re-executes the binary as
// a detached daemon (the hidden "daemon" command). "logsweep run" keeps the
// daemon in the foreground for service managers. The remaining commands talk
// to a running daemon through its PID record or inspect its files.
package main
