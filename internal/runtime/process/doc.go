// Package process launches service executables as detached local processes.
//
// A launch always starts by terminating every process that already runs under
// the service's image name, waits a short settle delay so the operating system
// can release ports and file locks held by those processes, and then spawns a
// fresh child with no inherited standard streams. The launcher does not keep
// the child's handle: the child is reaped in the background and later found
// again by image name when the application shuts down.
//
// On Windows a service configured with showWindow=false is started with
// CREATE_NO_WINDOW so no console is allocated. On Unix-like systems the child
// is placed in its own process group so terminal signals aimed at the launcher
// do not reach it.
package process
