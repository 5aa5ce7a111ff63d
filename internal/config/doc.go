// Package config loads the three-value logsweep configuration file and keeps
// the active settings as an immutable snapshot.
//
// The file holds exactly three lines: the source directory, the destination
// directory and the poll interval in whole seconds. There are no comments,
// quoting or defaults. Relative directories are resolved against the file's
// own directory so that they keep their meaning after the daemon changes its
// working directory to the filesystem root.
//
// Store swaps all three values as one unit on reload; readers always observe
// either the complete old snapshot or the complete new one.
package config
