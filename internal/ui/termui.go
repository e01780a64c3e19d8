package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/logger"
	"github.com/skalibog/oema/pkg/models"
)

// Стили UI
var (
	// Основные цвета
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	dangerColor    = lipgloss.Color("#cc3300")
	calmColor      = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")

	// Главный контейнер
	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)

	// Заголовок
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1).
			Align(lipgloss.Center)

	// Секция режимов
	regimesHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#ffffff")).
				Background(secondaryColor).
				Padding(0, 1)
	regimesSectionStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(secondaryColor).
				Padding(0, 1)

	// Футер
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor)
)

// TermUI представляет терминальный интерфейс
type TermUI struct {
	results       map[string]*models.PipelineResult
	resultsMutex  sync.RWMutex
	config        config.UIConfig
	program       *tea.Program
	selectedIndex int
}

// NewTermUI создает новый терминальный интерфейс
func NewTermUI(cfg config.UIConfig) (*TermUI, error) {
	ui := &TermUI{
		results: make(map[string]*models.PipelineResult),
		config:  cfg,
	}

	ui.program = tea.NewProgram(bubbleModel{ui: ui}, tea.WithAltScreen())
	return ui, nil
}

// Start запускает UI (блокирующий вызов)
func (ui *TermUI) Start() {
	if _, err := ui.program.Run(); err != nil {
		logger.Error("Ошибка работы терминального интерфейса", zap.Error(err))
	}
}

// UpdateResults обновляет отображаемые результаты пайплайна
func (ui *TermUI) UpdateResults(results map[string]*models.PipelineResult) {
	ui.resultsMutex.Lock()
	for symbol, result := range results {
		ui.results[symbol] = result
	}
	ui.resultsMutex.Unlock()

	ui.program.Send(refreshMsg{})
}

type refreshMsg struct{}

type tickMsg time.Time

// bubbleModel модель bubbletea поверх TermUI
type bubbleModel struct {
	ui     *TermUI
	width  int
	height int
}

func (m bubbleModel) Init() tea.Cmd {
	return m.tick()
}

func (m bubbleModel) tick() tea.Cmd {
	return tea.Tick(time.Duration(m.ui.config.RefreshRate)*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.ui.selectedIndex > 0 {
				m.ui.selectedIndex--
			}
		case "down", "j":
			m.ui.resultsMutex.RLock()
			count := len(m.ui.results)
			m.ui.resultsMutex.RUnlock()
			if m.ui.selectedIndex < count-1 {
				m.ui.selectedIndex++
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, m.tick()
	case refreshMsg:
	}
	return m, nil
}

func (m bubbleModel) View() string {
	m.ui.resultsMutex.RLock()
	defer m.ui.resultsMutex.RUnlock()

	title := titleStyle.Render("OEMA — эластичность рынка по позиционированию дилеров")
	section := renderRegimesSection(m.ui.results, m.ui.selectedIndex, m.ui.config.ShowZones)
	footer := footerStyle.Render("↑/↓ — выбор символа, q — выход")

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, section, footer))
}

// renderRegimesSection отображает таблицу режимов по символам и
// детали выбранного символа
func renderRegimesSection(results map[string]*models.PipelineResult, selectedIndex int, showZones bool) string {
	header := regimesHeaderStyle.Render(
		fmt.Sprintf("%-10s %-22s %12s %12s %8s %8s",
			"СИМВОЛ", "РЕЖИМ", "ЭЛАСТ", "ЭНЕРГИЯ", "СОГЛ", "УВЕР"))

	symbols := make([]string, 0, len(results))
	for symbol := range results {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var rows []string
	for i, symbol := range symbols {
		fused := results[symbol].Fused
		row := fmt.Sprintf("%-10s %-22s %12.3f %12.4f %8.2f %8.2f",
			symbol,
			colorizeRegime(fused.PrimaryRegime),
			fused.FusedElasticity,
			fused.FusedEnergy,
			fused.RealizedMoveScore,
			fused.AdaptiveConfidence)

		if i == selectedIndex {
			row = selectedStyle.Render(row)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		rows = append(rows, "ожидание первых результатов...")
	}

	body := strings.Join(rows, "\n")

	if showZones && selectedIndex < len(symbols) {
		body += "\n\n" + renderDetails(results[symbols[selectedIndex]])
	}

	return regimesSectionStyle.Render(header + "\n" + body)
}

// renderDetails отображает детали по таймфреймам выбранного символа
func renderDetails(result *models.PipelineResult) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Таймфреймы %s:", result.Symbol))

	for i, tf := range result.Timeframes {
		line := fmt.Sprintf("  %-6s вес %.2f  режим %-22s  форма %-11s  риск скачка %s",
			tf.Timeframe,
			result.Fused.Weights[i],
			tf.Regime.PrimaryRegime,
			tf.Regime.PotentialShape,
			tf.Regime.JumpRiskRegime)
		lines = append(lines, line)

		if len(tf.Gamma.PinZones) > 0 {
			var zones []string
			for _, zone := range tf.Gamma.PinZones {
				zones = append(zones, fmt.Sprintf("[%.0f-%.0f]", zone.Low, zone.High))
			}
			lines = append(lines, "         пин-зоны: "+strings.Join(zones, " "))
		}
	}

	return strings.Join(lines, "\n")
}

// colorizeRegime раскрашивает метку режима по степени опасности
func colorizeRegime(regime string) string {
	switch regime {
	case models.JumpRiskHigh, models.GammaShortSqueeze:
		return lipgloss.NewStyle().Foreground(dangerColor).Render(regime)
	case models.GammaLongCompression:
		return lipgloss.NewStyle().Foreground(calmColor).Render(regime)
	case models.RegimeNeutral:
		return regime
	default:
		return lipgloss.NewStyle().Foreground(warningColor).Render(regime)
	}
}
