// Package preflight provides readiness checks for the filesystem paths the
// daemon depends on.
//
// These checks run in two contexts:
//   - The daemon logs failed checks at startup and after each reload. They
//     never stop it; the sweep pass reports the same problems on its own.
//   - The CLI "logsweep status" command displays every check.
package preflight
