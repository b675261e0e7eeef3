// Package ui implements an interactive sync monitor using bubbletea's Elm architecture.
//
// The TUI walks through four views:
//  1. [JobListView] : Pick one sync job or the whole pipeline
//  2. [ConfirmView] : Confirm the run
//  3. [SyncView] : Follow progress with a spinner while the engine runs
//  4. [ResultView] : Per-job summary and graph totals
//
// The [Model] implements the standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Progress flows from [tasks.SyncEngine] through a buffered channel that the model drains one update per command.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, r, q) with contextual help from charmbracelet/bubbles/help.
package ui
