// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type confirmKeyMap struct {
	Yes key.Binding
	No  key.Binding
}

func (km confirmKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Yes, km.No}
}

func (km confirmKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{km.Yes, km.No}}
}

var _ help.KeyMap = confirmKeyMap{}

var defaultConfirmKeys = confirmKeyMap{
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "yes"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N", "q", "esc", "ctrl+c"),
		key.WithHelp("n/esc", "no"),
	),
}

var confirmPromptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

// confirmModel asks a single yes/no question.
type confirmModel struct {
	prompt    string
	keys      confirmKeyMap
	help      help.Model
	answered  bool
	confirmed bool
}

func newConfirmModel(prompt string) confirmModel {
	return confirmModel{prompt: prompt, keys: defaultConfirmKeys, help: help.New()}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keys.Yes):
		m.answered, m.confirmed = true, true
		return m, tea.Quit
	case key.Matches(k, m.keys.No):
		m.answered = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.answered {
		return ""
	}
	return confirmPromptStyle.Render(m.prompt) + "  " + m.help.View(m.keys) + "\n"
}

// confirm asks prompt on the terminal. Without a terminal it reads one line
// from stdin and accepts "y" or "yes".
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		final, err := tea.NewProgram(newConfirmModel(prompt), tea.WithInput(f), tea.WithOutput(cmd.ErrOrStderr())).Run()
		if err != nil {
			return false, fmt.Errorf("confirmation prompt: %w", err)
		}
		m, _ := final.(confirmModel)
		return m.confirmed, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
	line, err := readLine(in)
	if err != nil {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
