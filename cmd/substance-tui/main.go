// Command substance-tui is a terminal browser over a document snapshot:
// a node list with a movable cursor, and below it the selected node's
// text content (rendered as markdown, for inspection convenience).
// Annotation spans are not shown. It is a debug aid over the wire form,
// not a document editor — it never mutates the snapshot it loads.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/systemshift/substance/internal/substance/wire"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

type model struct {
	nodes    []wire.Node
	cursor   int
	width    int
	height   int
	renderer *glamour.TermRenderer
	err      error
}

func newModel(nodes []wire.Node) model {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(60))
	return model{nodes: nodes, renderer: r, err: err}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.nodes)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("substance document browser") + "\n\n")

	if len(m.nodes) == 0 {
		b.WriteString(dimStyle.Render("(empty snapshot)") + "\n")
		return b.String()
	}

	for i, n := range m.nodes {
		line := fmt.Sprintf("%s  %s", n.ID, n.Type)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("→ "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n" + dimStyle.Render(strings.Repeat("─", 40)) + "\n\n")
	b.WriteString(m.renderDetail(m.nodes[m.cursor]))
	b.WriteString("\n" + dimStyle.Render("↑/↓ navigate · q quit") + "\n")
	return b.String()
}

func (m model) renderDetail(n wire.Node) string {
	content, ok := n.Properties["content"].(string)
	if !ok || content == "" {
		return dimStyle.Render("(no text content)") + "\n"
	}
	if m.renderer == nil {
		return content + "\n"
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("render error: %v", err)) + "\n"
	}
	return rendered
}

func main() {
	snapshotPath := flag.String("snapshot", "", "path to a JSON snapshot file")
	flag.Parse()

	if *snapshotPath == "" {
		log.Fatal("missing -snapshot")
	}

	data, err := os.ReadFile(*snapshotPath)
	if err != nil {
		log.Fatalf("reading snapshot file: %v", err)
	}
	var snap wire.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Fatalf("decoding snapshot: %v", err)
	}

	p := tea.NewProgram(newModel(snap.Nodes))
	if _, err := p.Run(); err != nil {
		log.Fatalf("running tui: %v", err)
	}
}
