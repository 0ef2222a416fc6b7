package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/martinsuchenak/hometier/internal/model"
)

const (
	colorBackground = "#282A36"
	colorForeground = "#F8F8F2"
	colorComment    = "#6272A4"
	colorCyan       = "#8BE9FD"
	colorGreen      = "#50FA7B"
	colorOrange     = "#FFB86C"
	colorPink       = "#FF79C6"
	colorPurple     = "#BD93F9"
	colorRed        = "#FF5555"
	colorYellow     = "#F1FA8C"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

type styles struct {
	title, tab, activeTab, muted, card, cardValue, section, selected, cursor, flash lipgloss.Style
	tones                                                                           map[Level]lipgloss.Style
	badges                                                                          map[model.Status]lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPink)).
			Bold(true),
		tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)).
			Padding(0, 1),
		activeTab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorBackground)).
			Background(lipgloss.Color(colorPurple)).
			Bold(true).
			Padding(0, 1),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorPurple)).
			Padding(0, 1).
			Width(19),
		cardValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorCyan)).
			Bold(true),
		section: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorYellow)).
			Bold(true).
			MarginTop(1),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorOrange)),
		cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPink)).
			Bold(true),
		flash: lipgloss.NewStyle().
			Reverse(true),
		tones: map[Level]lipgloss.Style{
			LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan)),
			LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
			LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
			LevelDanger:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		},
		badges: map[model.Status]lipgloss.Style{
			model.StatusOnline:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorBackground)).Background(lipgloss.Color(colorGreen)).Padding(0, 1),
			model.StatusOffline: lipgloss.NewStyle().Foreground(lipgloss.Color(colorForeground)).Background(lipgloss.Color(colorRed)).Padding(0, 1),
			model.StatusUnknown: lipgloss.NewStyle().Foreground(lipgloss.Color(colorBackground)).Background(lipgloss.Color(colorYellow)).Padding(0, 1),
		},
	}
}

// RenderOptions carries the presentation state owned by the terminal program
type RenderOptions struct {
	Width    int
	Cursor   int
	Now      time.Time
	Progress func(fraction float64) string
	Spinner  string
	Help     string
}

// Render draws a snapshot
func Render(s Snapshot, opts RenderOptions) string {
	st := newStyles()
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	var b strings.Builder
	b.WriteString(renderHeader(st, s))
	b.WriteString("\n")

	if len(s.Counters) > 0 {
		b.WriteString(renderCounters(st, s.Counters, opts.Width))
		b.WriteString("\n")
	}

	if s.Scan != nil {
		b.WriteString(renderScan(st, s.Scan, opts))
	}

	switch s.View {
	case ViewDashboard:
		b.WriteString(renderDashboard(st, s, opts))
	case ViewScanning:
		b.WriteString(renderDevices(st, s.Devices, opts.Cursor))
	case ViewInventory:
		b.WriteString(renderInventory(st, s.Inventory, opts.Cursor, opts.Now))
	case ViewCategories:
		b.WriteString(renderCategories(st, s.Categories))
	}

	if len(s.Notifications) > 0 {
		b.WriteString("\n")
		for _, n := range s.Notifications {
			b.WriteString(st.tones[n.Level].Render("● "+n.Message) + "\n")
		}
	}

	if opts.Help != "" {
		b.WriteString("\n" + opts.Help)
	}
	return b.String()
}

func renderHeader(st styles, s Snapshot) string {
	tabs := make([]string, 0, len(Views))
	for i, v := range Views {
		label := fmt.Sprintf("%d %s", i+1, v.Title())
		if v == s.View {
			tabs = append(tabs, st.activeTab.Render(label))
		} else {
			tabs = append(tabs, st.tab.Render(label))
		}
	}

	tone, ok := st.tones[s.IndicatorTone]
	if !ok {
		tone = st.muted
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		st.title.Render("HomeTier  "),
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"  ",
		tone.Render("● "+s.Indicator),
	)
}

func counterLabel(id CounterID) string {
	switch id {
	case CounterOnline:
		return "Online"
	case CounterOffline:
		return "Offline"
	case CounterUnknown:
		return "Unknown"
	case CounterNewDevices:
		return "New Devices"
	case CounterInventory:
		return "Inventory Items"
	case CounterActive:
		return "Active Devices"
	case CounterTotalDevices:
		return "Total Devices"
	case CounterManaged:
		return "Managed"
	case CounterUnmanaged:
		return "Unmanaged"
	case CounterIgnored:
		return "Ignored"
	}
	return string(id)
}

func renderCounters(st styles, counters []CounterValue, width int) string {
	cards := make([]string, 0, len(counters))
	for _, c := range counters {
		cards = append(cards, st.card.Render(
			st.muted.Render(counterLabel(c.ID))+"\n"+st.cardValue.Render(fmt.Sprint(c.Value)),
		))
	}

	perRow := len(cards)
	if width > 0 {
		cardWidth := lipgloss.Width(cards[0])
		if n := width / cardWidth; n > 0 && n < perRow {
			perRow = n
		}
	}

	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := min(i+perRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderScan(st styles, scan *ScanView, opts RenderOptions) string {
	label := scan.Label
	if scan.Disabled {
		if opts.Spinner != "" {
			label = opts.Spinner + " " + label
		}
		label = st.muted.Render(label)
	} else {
		label = st.tones[LevelInfo].Render("[s] " + label)
	}

	out := label + "\n"
	if scan.ProgressVisible {
		bar := fmt.Sprintf("%3.0f%%", scan.Percent)
		if opts.Progress != nil {
			bar = opts.Progress(scan.Percent / 100)
		}
		out += bar
		if scan.ProgressLabel != "" {
			out += "  " + st.muted.Render(scan.ProgressLabel)
		}
		out += "\n"
	}
	return out
}

func renderDashboard(st styles, s Snapshot, opts RenderOptions) string {
	var b strings.Builder

	if s.LastScan != "" {
		b.WriteString(st.muted.Render("Last scan: "+s.LastScan) + "\n")
	}
	if s.Warranty != "" {
		b.WriteString(st.tones[LevelWarning].Render(s.Warranty) + "\n")
	}

	if s.StatusChart != nil {
		b.WriteString(st.section.Render("Device Status") + "\n")
		b.WriteString(renderStatusBars(st, s.StatusChart.Series))
	}

	if len(s.CategoryChart) > 0 {
		b.WriteString(st.section.Render("Inventory by Category") + "\n")
		maxCount := 0
		for _, c := range s.CategoryChart {
			maxCount = max(maxCount, c.Count)
		}
		for _, c := range s.CategoryChart {
			style := st.tones[LevelInfo]
			if c.Color != "" {
				style = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color))
			}
			b.WriteString(fmt.Sprintf("%-16s %s %d\n", truncate(c.Category, 16), style.Render(bar(c.Count, maxCount, 30)), c.Count))
		}
	}

	if len(s.Timeline) > 0 {
		b.WriteString(st.section.Render("Discovered (7 days)") + "\n")
		b.WriteString(sparkline(s.Timeline) + "\n")
	}

	if s.HasActivity {
		b.WriteString(st.section.Render("Recent Activity") + "\n")
		if len(s.Activity) == 0 {
			b.WriteString(st.muted.Render("No recent activity") + "\n")
		}
		for _, e := range s.Activity {
			line := fmt.Sprintf("%s  %s", e.Time.Format("15:04"), e.Title)
			if e.Detail != "" {
				line += "  " + st.muted.Render(e.Detail)
			}
			if e.Highlight {
				line = st.flash.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func renderStatusBars(st styles, series [3]int) string {
	labels := []model.Status{model.StatusOnline, model.StatusOffline, model.StatusUnknown}
	tones := []Level{LevelSuccess, LevelDanger, LevelWarning}
	total := series[0] + series[1] + series[2]

	var b strings.Builder
	for i, status := range labels {
		b.WriteString(fmt.Sprintf("%-8s %s %d\n", statusLabel(status), st.tones[tones[i]].Render(bar(series[i], total, 30)), series[i]))
	}
	return b.String()
}

func renderDevices(st styles, rows []DeviceRowView, cursor int) string {
	var b strings.Builder
	b.WriteString(st.section.Render("Recent Devices") + "\n")
	if len(rows) == 0 {
		return b.String() + st.muted.Render("No devices found") + "\n"
	}

	for i, r := range rows {
		pointer := "  "
		if i == cursor {
			pointer = st.cursor.Render("> ")
		}
		mark := "[ ]"
		if r.Selected {
			mark = st.selected.Render("[x]")
		}

		badge := st.badges[r.Status].Render(statusLabel(r.Status))
		if r.Flashing {
			badge = st.flash.Render(badge)
		}

		b.WriteString(fmt.Sprintf("%s%s %-20s %-15s %-17s %-18s %s\n",
			pointer, mark,
			truncate(r.Device.DisplayName(), 20),
			r.Device.IPAddress,
			r.Device.MACAddress,
			truncate(r.Device.Vendor, 18),
			badge,
		))
	}
	return b.String()
}

func renderInventory(st styles, rows []InventoryRowView, cursor int, now time.Time) string {
	var b strings.Builder
	b.WriteString(st.section.Render("Inventory") + "\n")
	if len(rows) == 0 {
		return b.String() + st.muted.Render("No inventory items") + "\n"
	}

	for i, r := range rows {
		it := r.Item
		pointer := "  "
		if i == cursor {
			pointer = st.cursor.Render("> ")
		}
		mark := "[ ]"
		if r.Selected {
			mark = st.selected.Render("[x]")
		}

		state, days := it.Warranty(now)
		warranty := st.muted.Render("no warranty")
		switch state {
		case model.WarrantyExpired:
			warranty = st.tones[LevelDanger].Render("expired")
		case model.WarrantyExpiring:
			warranty = st.tones[LevelWarning].Render(fmt.Sprintf("expires in %dd", days))
		case model.WarrantyActive:
			warranty = st.tones[LevelSuccess].Render("active")
		}
		b.WriteString(fmt.Sprintf("%s%s %-24s %-16s %-20s %s\n",
			pointer, mark,
			truncate(it.Name, 24),
			truncate(it.CategoryLabel(), 16),
			truncate(strings.TrimSpace(it.Brand+" "+it.Model), 20),
			warranty,
		))
	}
	return b.String()
}

func renderCategories(st styles, cats []model.Category) string {
	var b strings.Builder
	b.WriteString(st.section.Render("Categories") + "\n")
	if len(cats) == 0 {
		return b.String() + st.muted.Render("No categories") + "\n"
	}

	for _, c := range cats {
		name := c.Name
		if c.Color != "" {
			name = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render(name)
		}
		if c.IsDefault {
			name += st.muted.Render(" (default)")
		}
		b.WriteString(fmt.Sprintf("%s  %s  %s\n", name, st.muted.Render(fmt.Sprintf("%d items", c.ItemCount)), c.Description))
	}
	return b.String()
}

func bar(value, total, width int) string {
	if total <= 0 || value <= 0 {
		return ""
	}
	n := value * width / total
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func statusLabel(s model.Status) string {
	switch s {
	case model.StatusOnline:
		return "Online"
	case model.StatusOffline:
		return "Offline"
	case model.StatusUnknown:
		return "Unknown"
	}
	return "-"
}

func sparkline(points []model.TimelinePoint) string {
	maxCount := 0
	for _, p := range points {
		maxCount = max(maxCount, p.Count)
	}

	var b strings.Builder
	for _, p := range points {
		idx := 0
		if maxCount > 0 {
			idx = p.Count * (len(sparkBlocks) - 1) / maxCount
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
