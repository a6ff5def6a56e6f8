// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for catalog synchronization:
//  1. [ResourceListView] : Select which resource types to mirror
//  2. [ConfirmView] : Confirm the run before any writes happen
//  3. [SyncView] : Monitor real-time progress updates
//  4. [ResultView] : Display touched counts and skipped entries
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the CatalogEngine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, space, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
