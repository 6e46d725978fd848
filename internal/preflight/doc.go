// Package preflight provides readiness checks for the collaborator program
// and the filesystem paths sweeper depends on.
//
// The CLI "sweeper status" command renders RunAll as status lines. The root
// command runs CheckCommand before dispatching so a missing interpreter is
// reported once instead of once per entry.
package preflight
