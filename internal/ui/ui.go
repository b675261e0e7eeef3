package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunegraph/internal/formatter"
	"github.com/desertthunder/tunegraph/internal/repositories"
	"github.com/desertthunder/tunegraph/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	JobListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	view   ViewState
	engine *tasks.SyncEngine
	store  repositories.Store
	width  int
	height int

	jobList list.Model
	jobs    []tasks.Job
	spinner spinner.Model

	progressChan chan tasks.ProgressUpdate
	outcome      *syncComplete
	progress     tasks.ProgressUpdate
	finished     []*tasks.MergeResult

	result *tasks.SyncResult
	stats  *repositories.Stats
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model that runs jobs on engine and reads totals from store.
func NewModel(ctx context.Context, engine *tasks.SyncEngine, store repositories.Store) *Model {
	jobList := list.New(jobItems(), list.NewDefaultDelegate(), 0, 0)
	jobList.Title = "Sync Jobs"
	jobList.SetShowHelp(false)

	return &Model{
		ctx:     ctx,
		view:    JobListView,
		engine:  engine,
		store:   store,
		jobList: jobList,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Start skips the job picker and runs jobs as soon as the program starts.
func (m *Model) Start(jobs []tasks.Job) *Model {
	m.jobs = jobs
	m.view = SyncView
	return m
}

// Err returns the error of the last run, if any.
func (m *Model) Err() error {
	return m.err
}

// Init starts the sync right away when [Model.Start] selected jobs.
func (m *Model) Init() tea.Cmd {
	if m.view == SyncView {
		return m.startSync()
	}
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.jobList.SetSize(msg.Width-4, msg.Height-8)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case JobListView:
			return m.handleJobListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == JobListView {
		var cmd tea.Cmd
		m.jobList, cmd = m.jobList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		if res, ok := update.Data.(*tasks.MergeResult); ok && update.Phase == tasks.FinishJob {
			m.finished = append(m.finished, res)
		}
		if m.progressChan == nil {
			return m, nil
		}
		return m, m.waitForProgress()

	case MsgSyncComplete:
		done := msg.data.(syncComplete)
		m.result = done.result
		m.err = done.err
		m.view = ResultView
		m.progressChan = nil
		m.outcome = nil
		return m, m.fetchStats()

	case MsgStatsFetched:
		fetched := msg.data.(statsFetched)
		m.stats = fetched.stats
		if fetched.err != nil && m.err == nil {
			m.err = fetched.err
		}
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case JobListView:
		return m.renderJobList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleJobListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.jobList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.jobList.SelectedItem().(jobItem); ok {
				m.jobs = item.jobs
				m.view = ConfirmView
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.jobList, cmd = m.jobList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, m.startSync()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = JobListView
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = JobListView
		m.jobs = nil
		m.result = nil
		m.stats = nil
		m.err = nil
		m.finished = nil
		m.progress = tasks.ProgressUpdate{}
	}
	return m, nil
}

// startSync runs the engine in the background. The goroutine owns outcome until it closes the channel.
func (m *Model) startSync() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	outcome := &syncComplete{}
	m.progressChan = progress
	m.outcome = outcome
	m.finished = nil

	jobs := m.jobs
	go func() {
		outcome.result, outcome.err = m.engine.Run(m.ctx, jobs, progress)
		close(progress)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, outcome := m.progressChan, m.outcome
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return syncCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) fetchStats() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return func() tea.Msg {
		stats, err := m.store.Stats(m.ctx)
		return statsFetchedMsg(stats, err)
	}
}

func (m *Model) renderJobList() string {
	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.jobList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	names := make([]string, len(m.jobs))
	for i, j := range m.jobs {
		names[i] = j.String()
	}

	title := styles.title.Render(fmt.Sprintf("Run %d sync job(s)?", len(m.jobs)))
	info := styles.box.Render(strings.Join(names, " → "))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func phaseText(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.StartJob:
		return fmt.Sprintf("Starting %s (%d/%d)", u.Job, u.Step, u.Total)
	case tasks.ScanAnchors:
		return fmt.Sprintf("Scanning %s anchors...", u.Job)
	case tasks.FetchRemote:
		return "Fetching remote detail..."
	case tasks.LinkCounterparts:
		return fmt.Sprintf("Linking %s (%d/%d)", u.Job, u.Step, u.Total)
	case tasks.ResolveDeferred:
		return "Resolving deferred counterparts..."
	case tasks.FinishJob:
		return fmt.Sprintf("Finished %s", u.Job)
	default:
		return "Working..."
	}
}

func (m *Model) renderSync() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Syncing Graph"))
	b.WriteString("\n")

	for _, r := range m.finished {
		fmt.Fprintf(&b, "%s\n", styles.ok.Render(fmt.Sprintf("✓ %s: %d relationships, %d created", r.Job, r.Relationships, r.Created)))
		if r.Unresolved > 0 || len(r.Skipped) > 0 {
			fmt.Fprintf(&b, "  %s\n", styles.warn.Render(fmt.Sprintf("%d unresolved, %d skipped", r.Unresolved, len(r.Skipped))))
		}
	}

	fmt.Fprintf(&b, "\n%s %s\n", m.spinner.View(), phaseText(m.progress))
	if m.progress.Message != "" {
		fmt.Fprintf(&b, "%s\n", styles.help.Render(m.progress.Message))
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)))
	} else {
		b.WriteString(styles.ok.Render("✓ Sync Complete!"))
	}
	b.WriteString("\n\n")

	if m.result != nil && len(m.result.Jobs) > 0 {
		b.WriteString(formatter.SyncTable(m.result))
		b.WriteString("\n")
	}
	if m.stats != nil {
		b.WriteString(formatter.StatsTable(m.stats))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit}))
	return b.String()
}
