package config

const (
	// DefaultConfigFile is resolved against the working directory the daemon
	// was started from.
	DefaultConfigFile = "config.txt"
	// DefaultPIDPath is the well-known PID file location shared by every
	// invocation on the host.
	DefaultPIDPath = "/var/run/logsweep.pid"
	// DefaultLedgerPath holds the pass history database.
	DefaultLedgerPath = "/var/lib/logsweep/ledger.db"
	// AggregateFileName is the append-only file created under the destination directory.
	AggregateFileName = "total.log"
	// LogExtension selects the files picked up from the source directory.
	LogExtension = ".log"
)

// sampleConfig is written by CreateSample.
const sampleConfig = "/var/log/myapp\n/var/log/aggregate\n60\n"
