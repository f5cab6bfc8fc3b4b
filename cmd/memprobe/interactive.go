package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	blockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type probeModel struct {
	sess   *session
	input  textinput.Model
	result string
	err    error
}

func runInteractive(sess *session) error {
	_, err := tea.NewProgram(newProbeModel(sess)).Run()
	return err
}

func newProbeModel(sess *session) *probeModel {
	ti := textinput.New()
	ti.Placeholder = "alloc 64 8"
	ti.Focus()
	return &probeModel{sess: sess, input: ti}
}

func (m *probeModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *probeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "q" || line == "quit" {
				return m, tea.Quit
			}
			m.result, m.err = m.exec(line)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *probeModel) exec(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	switch fields[0] {
	case "alloc":
		if len(fields) < 2 {
			return "", fmt.Errorf("usage: alloc SIZE [ALIGN]")
		}
		size, err := parseU32(fields[1])
		if err != nil {
			return "", fmt.Errorf("bad size: %w", err)
		}
		align := uint32(1)
		if len(fields) > 2 {
			if align, err = parseU32(fields[2]); err != nil {
				return "", fmt.Errorf("bad align: %w", err)
			}
		}
		off, err := m.sess.alloc.Alloc(size, align)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("allocated guest:0x%x+%d", off, size), nil

	case "free":
		if len(fields) < 2 {
			return "", fmt.Errorf("usage: free OFFSET")
		}
		off, err := parseU32(fields[1])
		if err != nil {
			return "", fmt.Errorf("bad offset: %w", err)
		}
		size, align, ok := m.findBlock(off)
		if !ok {
			return "", fmt.Errorf("no live block at 0x%x", off)
		}
		m.sess.alloc.Free(off, size, align)
		return fmt.Sprintf("freed guest:0x%x+%d", off, size), nil

	case "write":
		if len(fields) < 3 {
			return "", fmt.Errorf("usage: write OFFSET TEXT")
		}
		off, err := parseU32(fields[1])
		if err != nil {
			return "", fmt.Errorf("bad offset: %w", err)
		}
		data := []byte(strings.Join(fields[2:], " "))
		if !m.sess.mem.Write(off, data) {
			return "", fmt.Errorf("write out of bounds at 0x%x", off)
		}
		return fmt.Sprintf("wrote %d bytes at 0x%x", len(data), off), nil

	case "help":
		return "alloc SIZE [ALIGN] · free OFFSET · write OFFSET TEXT · q quits", nil

	default:
		return "", fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}

// findBlock recovers size and alignment for a live offset from the ledger.
func (m *probeModel) findBlock(off uint32) (size, align uint32, ok bool) {
	m.sess.alloc.Each(func(o, s, a uint32) bool {
		if o == off {
			size, align, ok = s, a, true
			return false
		}
		return true
	})
	return size, align, ok
}

type liveBlock struct {
	off, size, align uint32
}

func (m *probeModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("memprobe — " + m.sess.name))
	b.WriteString("\n\n")

	var blocks []liveBlock
	m.sess.alloc.Each(func(off, size, align uint32) bool {
		blocks = append(blocks, liveBlock{off, size, align})
		return true
	})
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].off < blocks[j].off })

	if len(blocks) == 0 {
		b.WriteString(helpStyle.Render("no live blocks"))
		b.WriteString("\n")
	}
	for _, blk := range blocks {
		b.WriteString(blockStyle.Render(
			fmt.Sprintf("guest:0x%06x  %6d bytes  align %d", blk.off, blk.size, blk.align)))
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\n%d live · %d allocs · %d frees\n\n",
		len(blocks), m.sess.alloc.Allocs(), m.sess.alloc.Frees()))

	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.result != "" {
		b.WriteString(resultStyle.Render(m.result))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter runs a command · help lists them · esc quits"))
	b.WriteString("\n")

	return b.String()
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
