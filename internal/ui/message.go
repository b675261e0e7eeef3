package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunegraph/internal/repositories"
	"github.com/desertthunder/tunegraph/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgSyncComplete
	MsgStatsFetched
)

type syncComplete struct {
	result *tasks.SyncResult
	err    error
}

type statsFetched struct {
	stats *repositories.Stats
	err   error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result *tasks.SyncResult, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{result, err}}
}

// statsFetchedMsg is the constructor for [MsgStatsFetched]
func statsFetchedMsg(stats *repositories.Stats, err error) Msg {
	return Msg{kind: MsgStatsFetched, data: statsFetched{stats, err}}
}
