package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ResourceListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

// Options carries the run settings that come from flags rather than the
// interactive selection.
type Options struct {
	Users                 []string
	IncludeEpisodePosters bool
	HasMarkerStore        bool
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       tasks.SyncEngine
	opts         Options
	width        int
	height       int
	resourceList list.Model
	selected     map[models.ResourceType]bool
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.RunResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine tasks.SyncEngine, opts Options) *Model {
	m := &Model{
		ctx:      ctx,
		view:     ResourceListView,
		engine:   engine,
		opts:     opts,
		selected: make(map[models.ResourceType]bool),
		help:     help.New(),
		keys:     newKeyMap(),
	}

	m.resourceList = list.New(m.resourceItems(), list.NewDefaultDelegate(), 0, 0)
	m.resourceList.Title = "Resource Types"
	m.resourceList.SetFilteringEnabled(false)

	return m
}

// resourceItems builds the list entries, omitting markers when the target
// metadata database is not reachable from this process.
func (m *Model) resourceItems() []list.Item {
	var items []list.Item
	for _, resource := range models.KnownResourceTypes {
		if resource == models.Markers && !m.opts.HasMarkerStore {
			continue
		}
		items = append(items, resourceItem{resource: resource, selected: m.selected[resource]})
	}
	return items
}

func (m *Model) selectedResources() []models.ResourceType {
	var resources []models.ResourceType
	for _, resource := range models.KnownResourceTypes {
		if m.selected[resource] {
			resources = append(resources, resource)
		}
	}
	return resources
}

// Init is a no-op: the resource list is static.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resourceList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ResourceListView:
			return m.handleResourceListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == ResourceListView {
		m.resourceList, cmd = m.resourceList.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ResourceListView:
		return m.renderResourceList()
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

func (m *Model) handleResourceListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if item, ok := m.resourceList.SelectedItem().(resourceItem); ok {
			m.selected[item.resource] = !m.selected[item.resource]
			index := m.resourceList.Index()
			m.resourceList.SetItems(m.resourceItems())
			m.resourceList.Select(index)
		}
		return m, nil
	case "enter":
		if len(m.selectedResources()) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.resourceList, cmd = m.resourceList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = ResourceListView
		return m, nil
	case "y":
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = ResourceListView
		m.result = nil
		m.err = nil
		m.progress = tasks.ProgressUpdate{}
		return m, nil
	}
	return m, nil
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progress := m.progressChan

	opts := tasks.RunOptions{
		Resources:             m.selectedResources(),
		Users:                 m.opts.Users,
		IncludeEpisodePosters: m.opts.IncludeEpisodePosters,
	}

	go func() {
		result, err := m.engine.Run(m.ctx, progress, opts)
		m.result = result
		m.err = err
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return syncCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return syncCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderResourceList() string {
	helpKeys := []key.Binding{m.keys.toggle, m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.resourceList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	resources := m.selectedResources()
	names := make([]string, len(resources))
	for i, resource := range resources {
		names[i] = string(resource)
	}

	title := styles.title.Render("Start synchronization?")
	info := fmt.Sprintf("\nResources: %s\n", strings.Join(names, ", "))
	if len(m.opts.Users) > 0 {
		info += fmt.Sprintf("Users: %s\n", strings.Join(m.opts.Users, ", "))
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Synchronizing Catalogs")

	phase := m.progress.Phase.String()
	if m.progress.Total > 0 {
		phase = fmt.Sprintf("%s (%d/%d)", phase, m.progress.Step, m.progress.Total)
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to retry, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to retry, q to quit")
	}

	title := styles.ok.Render("✓ Sync Complete!")

	var info strings.Builder
	info.WriteString("\n")
	for _, resource := range models.KnownResourceTypes {
		touched, ok := m.result.Touched[resource]
		if !ok {
			continue
		}
		info.WriteString(fmt.Sprintf("%s: %d touched\n", resource, len(touched)))
	}

	var skipped string
	if len(m.result.Skipped) > 0 {
		skipped = fmt.Sprintf("\n%s", styles.warn.Render(fmt.Sprintf("Skipped %d entries:", len(m.result.Skipped))))
		for _, skip := range m.result.Skipped {
			skipped += fmt.Sprintf("\n  • %s %s: %s", skip.Resource, skip.Key, skip.Reason)
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info.String(), skipped, helpView)
}
