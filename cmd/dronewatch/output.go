package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/five82/dronewatch/internal/drone"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(12)
)

func renderTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "no results")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

func printDrones(w io.Writer, drones map[int64]drone.Drone) {
	rows := make([][]string, 0, len(drones))
	for _, id := range slices.Sorted(maps.Keys(drones)) {
		d := drones[id]
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10),
			d.SerialNumber,
			d.CarriageLabel(),
			strconv.Itoa(d.CarriageWeight),
			strconv.FormatInt(d.DroneTypeID, 10),
			d.Created,
		})
	}
	renderTable(w, []string{"ID", "Serial", "Carriage", "Weight", "Type", "Created"}, rows)
}

func printTypes(w io.Writer, types map[int64]drone.DroneType) {
	rows := make([][]string, 0, len(types))
	for _, id := range slices.Sorted(maps.Keys(types)) {
		t := types[id]
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Manufacturer,
			t.TypeName,
			strconv.Itoa(t.Weight),
			strconv.Itoa(t.MaxSpeed),
			strconv.Itoa(t.BatteryCapacity),
			strconv.Itoa(t.ControlRange),
			strconv.Itoa(t.MaxCarriage),
		})
	}
	renderTable(w, []string{"ID", "Manufacturer", "Type", "Weight", "Max speed", "Battery", "Range", "Max carriage"}, rows)
}

func printDynamics(w io.Writer, samples []drone.Dynamics) {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{
			strconv.FormatInt(s.DroneID, 10),
			s.Timestamp,
			s.StatusLabel(),
			strconv.Itoa(s.BatteryStatus) + "%",
			strconv.Itoa(s.Speed),
			fmt.Sprintf("%.5f, %.5f", s.Latitude, s.Longitude),
			s.LastSeen,
		})
	}
	renderTable(w, []string{"Drone", "Timestamp", "Status", "Battery", "Speed", "Position", "Last seen"}, rows)
}

// latestSamples keeps the newest sample per drone, ordered by drone id.
func latestSamples(samples []drone.Dynamics) []drone.Dynamics {
	latest := drone.LatestByDrone(samples)
	out := make([]drone.Dynamics, 0, len(latest))
	for _, id := range slices.Sorted(maps.Keys(latest)) {
		out = append(out, latest[id])
	}
	return out
}

type droneDetail struct {
	Drone       drone.Drone
	Type        drone.DroneType
	HasType     bool
	Dynamics    drone.Dynamics
	HasDynamics bool
}

func printDroneDetail(w io.Writer, d droneDetail) {
	var b strings.Builder
	field := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}
	field("ID", strconv.FormatInt(d.Drone.ID, 10))
	field("Serial", d.Drone.SerialNumber)
	field("Carriage", fmt.Sprintf("%s, %d g", d.Drone.CarriageLabel(), d.Drone.CarriageWeight))
	field("Created", d.Drone.Created)
	if d.HasType {
		t := d.Type
		field("Type", fmt.Sprintf("%s (#%d)", t.Label(), t.ID))
		field("Specs", fmt.Sprintf("%d g, max %d km/h, battery %d mAh, range %d m, max carriage %d g",
			t.Weight, t.MaxSpeed, t.BatteryCapacity, t.ControlRange, t.MaxCarriage))
	} else {
		field("Type", fmt.Sprintf("#%d (unavailable)", d.Drone.DroneTypeID))
	}
	if d.HasDynamics {
		s := d.Dynamics
		field("Status", s.StatusLabel())
		field("Battery", strconv.Itoa(s.BatteryStatus)+"%")
		field("Speed", strconv.Itoa(s.Speed)+" km/h")
		field("Position", fmt.Sprintf("%.5f, %.5f", s.Latitude, s.Longitude))
		field("Last seen", s.LastSeen)
	} else {
		field("Telemetry", "none")
	}
	fmt.Fprint(w, b.String())
}
