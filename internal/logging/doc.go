// Package logging assembles structured slog loggers and formatting helpers used
// across logsweep.
//
// It owns the console/JSON handlers, the output plumbing (stdout, stderr,
// syslog, files) and a bounded asynchronous writer so that emitting a record
// never stalls the aggregation cycle: when the sink is saturated lines are
// dropped and counted instead. Attribute helpers and the standard field keys
// keep records consistent between the daemon and the CLI.
package logging
