// Package tui renders a dependent-selection form in the terminal. Option
// loads run as tea.Cmds and come back through Update, so all chain access
// stays on the bubbletea event loop.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/cropform/internal/chain"
)

type resultMsg struct {
	res chain.Result
}

type statusKind int

const (
	statusNone statusKind = iota
	statusInfo
	statusError
	statusSuccess
)

type pickerState struct {
	stage  string
	cursor int
}

type Model struct {
	ctx   context.Context
	chain *chain.Chain
	title string
	log   *zap.Logger
	keys  keyMap
	width int

	focus  int
	picker *pickerState

	status     string
	statusKind statusKind

	submitted bool
	result    chain.SelectionState
}

// New returns a model driving c. The chain is initialised by Init.
func New(ctx context.Context, c *chain.Chain, title string, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	return Model{ctx: ctx, chain: c, title: title, log: log, keys: newKeyMap()}
}

func (m Model) Init() tea.Cmd {
	return m.fetch(m.chain.Init())
}

// Submitted returns the selections accepted by the last successful submit.
func (m Model) Submitted() (chain.SelectionState, bool) {
	return m.result, m.submitted
}

func (m Model) fetch(reqs []chain.Request) tea.Cmd {
	if len(reqs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, func() tea.Msg {
			return resultMsg{res: req.Exec(m.ctx)}
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		return m.applyResult(msg.res), nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if m.picker != nil {
			return m.updatePicker(msg)
		}
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) applyResult(res chain.Result) Model {
	out := m.chain.Apply(res)
	if out.Stale {
		m.log.Debug("stale result ignored", zap.String("stage", out.Stage), zap.Uint64("epoch", res.Request.Epoch))
		return m
	}
	if out.Notice != nil {
		m = m.setNotice(*out.Notice)
	}
	if m.picker != nil && !m.chain.Enabled(m.picker.stage) {
		m.picker = nil
	}
	return m
}

func (m Model) setNotice(n chain.Notice) Model {
	m.status = n.Message
	m.statusKind = statusInfo
	if n.Level == chain.LevelError {
		m.statusKind = statusError
	}
	return m
}

func (m Model) setStatus(kind statusKind, format string, args ...any) Model {
	m.status = fmt.Sprintf(format, args...)
	m.statusKind = kind
	return m
}

func (m Model) focused() chain.Stage {
	return m.chain.Stages()[m.focus]
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.chain.Stages())
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Prev):
		if m.focus > 0 {
			m.focus--
		}
	case key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.Next):
		if m.focus < n-1 {
			m.focus++
		}
	case key.Matches(msg, m.keys.Pick):
		st := m.focused()
		label := strings.ToLower(st.DisplayLabel())
		switch m.chain.Status(st.Key) {
		case chain.StatusReady:
			m.picker = &pickerState{stage: st.Key, cursor: m.indexOfValue(st.Key)}
		case chain.StatusLoading:
			m = m.setStatus(statusInfo, "Loading %s options…", label)
		case chain.StatusFailed:
			m = m.setStatus(statusError, "Loading %s options failed, press r to retry", label)
		default:
			m = m.setStatus(statusInfo, "Choose %s first", m.missingLabel(st))
		}
	case key.Matches(msg, m.keys.Reload):
		st := m.focused()
		req, err := m.chain.Reload(st.Key)
		if err != nil {
			return m.setStatus(statusError, "%s", capitalize(err.Error())), nil
		}
		m = m.setStatus(statusInfo, "Reloading %s options…", strings.ToLower(st.DisplayLabel()))
		return m, m.fetch([]chain.Request{req})
	case key.Matches(msg, m.keys.Submit):
		if err := m.chain.Validate(); err != nil {
			return m.setStatus(statusError, "%s", capitalize(err.Error())), nil
		}
		m.submitted = true
		m.result = m.chain.State()
		m.log.Info("form submitted", zap.String("form", m.chain.ID()), zap.Any("selection", m.result))
		return m.setStatus(statusSuccess, "Submitted"), tea.Quit
	}
	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	opts := m.chain.Options(m.picker.stage)
	switch {
	case key.Matches(msg, m.keys.Close):
		m.picker = nil
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Prev):
		if m.picker.cursor > 0 {
			m.picker = &pickerState{stage: m.picker.stage, cursor: m.picker.cursor - 1}
		}
	case key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.Next):
		if m.picker.cursor < len(opts)-1 {
			m.picker = &pickerState{stage: m.picker.stage, cursor: m.picker.cursor + 1}
		}
	case key.Matches(msg, m.keys.Pick):
		stage, cursor := m.picker.stage, m.picker.cursor
		m.picker = nil
		if cursor >= len(opts) {
			return m, nil
		}
		reqs, err := m.chain.Select(stage, opts[cursor].Value)
		if err != nil {
			return m.setStatus(statusError, "%v", err), nil
		}
		m.status, m.statusKind = "", statusNone
		return m, m.fetch(reqs)
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) indexOfValue(key string) int {
	v := m.chain.Value(key)
	for i, o := range m.chain.Options(key) {
		if o.Value == v {
			return i
		}
	}
	return 0
}

func (m Model) missingLabel(st chain.Stage) string {
	for _, dep := range st.DependsOn {
		if m.chain.Value(dep) == "" {
			if d, ok := m.chain.Stage(dep); ok {
				return strings.ToLower(d.DisplayLabel())
			}
		}
	}
	return "the previous fields"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
