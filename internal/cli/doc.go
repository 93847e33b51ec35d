// Package cli provides the interactive diary command-line client.
//
// The REPL reads commands on its own goroutine and drives the view-model.
// The entry listing is kept live on the rendering loop: a background
// subscription replaces the loop-owned snapshot whenever the store changes,
// and "list" prints whatever the loop currently holds.
//
// Commands:
//   - list, order asc|desc
//   - new, open <id>, show
//   - title [text], content, date [YYYY-MM-DD], save
//   - reset, clear
//   - help, exit | quit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
