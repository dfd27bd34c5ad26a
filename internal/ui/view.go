package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/five82/dronewatch/internal/droneapi"
	"github.com/five82/dronewatch/internal/state"
)

const (
	// chromeLines is everything around the table: header, filter bar, table
	// borders and heading, detail box and footer.
	chromeLines    = 17
	minTableRows   = 3
	unsizedMaxRows = 20
)

var tableHeaders = []string{"ID", "Serial", "Type", "Carriage", "Status", "Battery", "Speed", "Last seen"}

// View renders the model.
func (m Model) View() string {
	sections := []string{
		m.renderHeader(),
		m.renderFilterBar(),
		m.renderTable(),
		m.renderDetail(),
		m.renderFooter(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	s := m.styles
	parts := []string{s.AccentText.Bold(true).Render("dronewatch")}
	if m.baseURL != "" {
		parts = append(parts, s.MutedText.Render(m.baseURL))
	}

	total := len(m.snapshot.Fleet.Drones)
	parts = append(parts, fmt.Sprintf("drones %d/%d", len(m.rows), total))
	parts = append(parts, m.refreshLabel())

	snap := m.snapshot
	switch {
	case snap.LastError != nil && snap.IsOffline():
		parts = append(parts, s.DangerText.Render("offline: "+droneapi.UserMessage(snap.LastError)))
	case snap.LastError != nil:
		parts = append(parts, s.WarningText.Render(droneapi.UserMessage(snap.LastError)))
	case !snap.HasData:
		parts = append(parts, s.MutedText.Render("waiting for first refresh..."))
	}
	if !snap.LastUpdated.IsZero() {
		parts = append(parts, s.MutedText.Render("updated "+snap.LastUpdated.Format("15:04:05")))
	}
	return s.Header.Render(strings.Join(parts, "  "))
}

func (m Model) refreshLabel() string {
	if m.refresh == nil {
		return m.styles.MutedText.Render("refresh: off")
	}
	if m.refresh.Running() {
		return m.styles.SuccessText.Render("refresh: on")
	}
	return m.styles.WarningText.Render("refresh: paused")
}

func (m Model) renderFilterBar() string {
	if m.searching {
		return " " + m.search.View()
	}
	s := m.styles
	label := func(name, value string) string {
		if value == "" {
			return s.MutedText.Render(name + ": any")
		}
		return s.InfoText.Render(name + ": " + value)
	}
	parts := []string{
		label("serial", m.filters.serialGlob),
		label("carriage", m.filters.carriage),
		label("status", m.filters.status),
	}
	if m.notice != "" {
		parts = append(parts, s.WarningText.Render(m.notice))
	}
	return " " + strings.Join(parts, "  ")
}

// visibleWindow returns the [start, end) slice of rows that fits the screen
// while keeping the selection visible.
func (m Model) visibleWindow() (int, int) {
	capacity := unsizedMaxRows
	if m.height > 0 {
		capacity = max(m.height-chromeLines, minTableRows)
	}
	n := len(m.rows)
	if n <= capacity {
		return 0, n
	}
	start := m.selected - capacity/2
	start = max(0, min(start, n-capacity))
	return start, start + capacity
}

func (m Model) renderTable() string {
	s := m.styles
	if len(m.rows) == 0 {
		msg := "no drones"
		if m.filters.active() {
			msg = "no drones match the current filters"
		}
		return s.Box.Render(s.MutedText.Render(msg))
	}

	start, end := m.visibleWindow()
	data := make([][]string, 0, end-start)
	for _, row := range m.rows[start:end] {
		data = append(data, rowCells(row))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(s.Border)).
		Headers(tableHeaders...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return s.AccentText.Bold(true).Padding(0, 1)
			case start+row == m.selected:
				return s.Selected
			case col == 4:
				status := m.rows[start+row].Dynamics.Status
				return s.Cell.Foreground(s.StatusStyle(status).GetBackground())
			default:
				return s.Cell
			}
		})
	if m.width > 0 {
		t = t.Width(m.width)
	}
	return t.Render()
}

func rowCells(r state.Row) []string {
	typeLabel := "-"
	if r.HasType {
		typeLabel = r.Type.Label()
	}
	status, battery, speed, seen := "-", "-", "-", "-"
	if r.HasDynamics {
		status = r.Dynamics.StatusLabel()
		battery = strconv.Itoa(r.Dynamics.BatteryStatus) + "%"
		speed = strconv.Itoa(r.Dynamics.Speed) + " km/h"
		seen = formatTime(r.Dynamics.ParsedLastSeen(), r.Dynamics.LastSeen)
	}
	return []string{
		strconv.FormatInt(r.Drone.ID, 10),
		r.Drone.SerialNumber,
		typeLabel,
		r.Drone.CarriageLabel(),
		status,
		battery,
		speed,
		seen,
	}
}

func (m Model) renderDetail() string {
	s := m.styles
	row, ok := m.selectedRow()
	if !ok {
		return ""
	}
	d := row.Drone
	lines := []string{
		s.AccentText.Bold(true).Render(fmt.Sprintf("#%d %s", d.ID, d.SerialNumber)) +
			s.MutedText.Render(fmt.Sprintf("  created %s", formatTime(d.ParsedCreated(), d.Created))),
		fmt.Sprintf("carriage %s, %d g", d.CarriageLabel(), d.CarriageWeight),
	}
	if row.HasType {
		t := row.Type
		lines = append(lines, fmt.Sprintf("type %s: %d g, max %d km/h, battery %d mAh, range %d m, max carriage %d g",
			t.Label(), t.Weight, t.MaxSpeed, t.BatteryCapacity, t.ControlRange, t.MaxCarriage))
	} else {
		lines = append(lines, s.MutedText.Render(fmt.Sprintf("type #%d not loaded", d.DroneTypeID)))
	}
	if row.HasDynamics {
		dyn := row.Dynamics
		lines = append(lines,
			s.StatusStyle(dyn.Status).Render(dyn.StatusLabel())+
				fmt.Sprintf(" battery %d%%, speed %d km/h", dyn.BatteryStatus, dyn.Speed),
			fmt.Sprintf("position %.5f, %.5f  roll %.1f pitch %.1f yaw %.1f",
				dyn.Latitude, dyn.Longitude, dyn.AlignRoll, dyn.AlignPitch, dyn.AlignYaw),
		)
	} else {
		lines = append(lines, s.MutedText.Render("no telemetry"), "")
	}
	box := s.Box
	if m.width > 2 {
		box = box.Width(m.width - 2)
	}
	return box.Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	return m.styles.Footer.Render(m.help.View(m.keys))
}

func formatTime(t time.Time, raw string) string {
	if t.IsZero() {
		if raw == "" {
			return "-"
		}
		return raw
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
