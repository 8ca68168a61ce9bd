package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SetupSettings records the outcome of first-run setup.
type SetupSettings struct {
	Completed      bool `json:"completed"`
	DeletesEnabled bool `json:"deletes_enabled"`
}

func setupPath(configDir string) string {
	return filepath.Join(configDir, "setup.json")
}

func loadSetupSettings(configDir string) (SetupSettings, error) {
	data, err := os.ReadFile(setupPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return SetupSettings{}, nil
		}
		return SetupSettings{}, err
	}

	var settings SetupSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return SetupSettings{}, err
	}
	return settings, nil
}

func saveSetupSettings(configDir string, settings SetupSettings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(setupPath(configDir), data, 0644)
}

func secureAPIKeyPath(configDir string) string {
	return filepath.Join(configDir, "api_key")
}

func saveSecureAPIKey(configDir, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	// Owner read/write only.
	return os.WriteFile(secureAPIKeyPath(configDir), []byte(strings.TrimSpace(key)+"\n"), 0600)
}

func loadSecureAPIKey(configDir string) (string, error) {
	data, err := os.ReadFile(secureAPIKeyPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func shouldRunSetup(settings SetupSettings, interactive bool) bool {
	return !settings.Completed && interactive
}

// generateAPIKey returns 32 random bytes, hex encoded.
func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type setupStep int

const (
	stepChoose setupStep = iota
	stepKey
	stepDone
)

type setupModel struct {
	step        setupStep
	generate    bool
	keyInput    textinput.Model
	settings    SetupSettings
	capturedKey string
	status      string
	width       int
	height      int

	// newKey is generateAPIKey outside tests.
	newKey func() (string, error)
}

var (
	suColorMuted  = lipgloss.Color("#8C7E72")
	suColorText   = lipgloss.Color("#E6DCD3")
	suColorAccent = lipgloss.Color("#C08A5B")
	suColorDanger = lipgloss.Color("#f38ba8")

	suTitleStyle = lipgloss.NewStyle().
			Foreground(suColorAccent).
			Bold(true)

	suHeaderStyle = lipgloss.NewStyle().
			Foreground(suColorAccent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(suColorMuted)

	suPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(suColorMuted).
			Padding(1, 2)

	suInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(suColorAccent).
			Padding(0, 1)

	suLabelStyle = lipgloss.NewStyle().
			Foreground(suColorAccent).
			Bold(true)

	suMutedStyle = lipgloss.NewStyle().
			Foreground(suColorMuted)

	suOptionStyle = lipgloss.NewStyle().
			Foreground(suColorText)

	suOptionSelected = lipgloss.NewStyle().
				Foreground(suColorAccent).
				Bold(true)

	suWarnStyle = lipgloss.NewStyle().
			Foreground(suColorDanger)

	suFooterStyle = lipgloss.NewStyle().
			Foreground(suColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(suColorMuted)
)

func newSetupModel() setupModel {
	in := textinput.New()
	in.Placeholder = "Type the key clients will send as api-key"
	in.CharLimit = 200
	in.Prompt = "key> "
	in.EchoMode = textinput.EchoPassword
	in.TextStyle = lipgloss.NewStyle().Foreground(suColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(suColorMuted)
	in.Focus()

	return setupModel{
		step:     stepChoose,
		generate: true,
		keyInput: in,
		settings: SetupSettings{Completed: true},
		newKey:   generateAPIKey,
	}
}

func (m setupModel) Init() tea.Cmd { return nil }

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch m.step {
		case stepChoose:
			switch msg.String() {
			case "g", "G":
				m.generate = true
				return m.nextStep()
			case "e", "E":
				m.generate = false
				return m.nextStep()
			case "up", "k":
				m.generate = true
				return m, nil
			case "down", "j":
				m.generate = false
				return m, nil
			case "enter":
				return m.nextStep()
			case "ctrl+c", "q":
				return m.finish("", "Setup canceled. Deleting cafes is disabled.")
			default:
				return m, nil
			}
		case stepKey:
			switch msg.String() {
			case "enter":
				key := strings.TrimSpace(m.keyInput.Value())
				if key == "" {
					return m.finish("", "No key entered. Deleting cafes is disabled.")
				}
				return m.finish(key, "API key saved.")
			case "esc", "ctrl+c":
				return m.finish("", "Skipped key setup. Deleting cafes is disabled.")
			}
			var cmd tea.Cmd
			m.keyInput, cmd = m.keyInput.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m setupModel) nextStep() (tea.Model, tea.Cmd) {
	if !m.generate {
		m.step = stepKey
		return m, nil
	}
	key, err := m.newKey()
	if err != nil {
		return m.finish("", "Could not generate a key. Deleting cafes is disabled.")
	}
	return m.finish(key, "Generated a new API key.")
}

func (m setupModel) finish(key, status string) (tea.Model, tea.Cmd) {
	m.capturedKey = key
	m.settings.DeletesEnabled = key != ""
	m.status = status
	m.step = stepDone
	return m, tea.Quit
}

func (m setupModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	header := suHeaderStyle.Width(width).Render("  " + suTitleStyle.Render("cafes") + " " + suMutedStyle.Render("› Setup"))
	footer := suFooterStyle.Width(width).Render(m.footerText())

	cardWidth := width - 6
	if cardWidth > 80 {
		cardWidth = 80
	}
	if cardWidth < 40 {
		cardWidth = width - 2
	}
	card := suPanelStyle.Width(cardWidth).Render(m.body(cardWidth))

	return lipgloss.JoinVertical(lipgloss.Left, header, "", card, "", footer)
}

func (m setupModel) footerText() string {
	switch m.step {
	case stepChoose:
		return "↑↓/jk to navigate  g/e enter to confirm  q cancel"
	case stepKey:
		return "enter save  esc skip"
	default:
		return "Setup complete"
	}
}

func (m setupModel) body(cardWidth int) string {
	switch m.step {
	case stepChoose:
		gen := "Generate a random API key"
		own := "Enter my own API key"
		var genDisplay, ownDisplay string
		if m.generate {
			genDisplay = "  " + suOptionSelected.Render("→ "+gen)
			ownDisplay = "    " + suOptionStyle.Render(own)
		} else {
			genDisplay = "    " + suOptionStyle.Render(gen)
			ownDisplay = "  " + suOptionSelected.Render("→ "+own)
		}
		return lipgloss.JoinVertical(
			lipgloss.Left,
			suLabelStyle.Render("Reporting a cafe closed requires an API key."),
			"",
			genDisplay,
			ownDisplay,
			"",
			suMutedStyle.Render("The key is stored in ~/.cafes/api_key (mode 0600)."),
		)
	case stepKey:
		inputWidth := cardWidth - 14
		if inputWidth < 30 {
			inputWidth = 30
		}
		return lipgloss.JoinVertical(
			lipgloss.Left,
			suLabelStyle.Render("API Key"),
			suInputStyle.Width(inputWidth).Render(m.keyInput.View()),
			"",
			suMutedStyle.Render("Press Enter to save, Esc to skip."),
		)
	default:
		msg := suMutedStyle.Render(m.status)
		if strings.Contains(m.status, "disabled") {
			msg = suWarnStyle.Render(m.status)
		}
		return lipgloss.JoinVertical(lipgloss.Left, suLabelStyle.Render("Setup Complete"), "", msg)
	}
}

// runSetup asks for the delete key and persists the result. It returns the
// key, which is empty when the user declined.
func runSetup(configDir string) (string, error) {
	prog := tea.NewProgram(newSetupModel(), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return "", fmt.Errorf("setup tui failed: %w", err)
	}
	m, ok := finalModel.(setupModel)
	if !ok {
		return "", fmt.Errorf("unexpected setup model type")
	}
	if err := persistSetup(configDir, m); err != nil {
		return "", err
	}
	if m.capturedKey != "" && m.generate {
		fmt.Fprintf(os.Stderr, "Generated API key: %s\n", m.capturedKey)
	}
	return m.capturedKey, nil
}

func persistSetup(configDir string, m setupModel) error {
	if strings.TrimSpace(m.capturedKey) != "" {
		if err := saveSecureAPIKey(configDir, m.capturedKey); err != nil {
			return err
		}
	}
	return saveSetupSettings(configDir, m.settings)
}
