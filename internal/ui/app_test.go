package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/dronewatch/internal/drone"
	"github.com/five82/dronewatch/internal/droneapi"
	"github.com/five82/dronewatch/internal/state"
)

type fakeRefresh struct {
	running   bool
	pauses    int
	resumes   int
	resumeErr error
}

func (f *fakeRefresh) Pause() { f.running = false; f.pauses++ }

func (f *fakeRefresh) Resume() error {
	f.resumes++
	if f.resumeErr != nil {
		return f.resumeErr
	}
	f.running = true
	return nil
}

func (f *fakeRefresh) Running() bool { return f.running }

func testStore() *state.Store {
	store := &state.Store{}
	store.Update(&state.Fleet{
		Drones: map[int64]drone.Drone{
			1: {ID: 1, SerialNumber: "SN1-A", CarriageType: drone.CarriageSensor, DroneTypeID: 5},
			2: {ID: 2, SerialNumber: "SN2-B", CarriageType: drone.CarriageActuator, DroneTypeID: 5},
			3: {ID: 3, SerialNumber: "XX3", CarriageType: drone.CarriageNone, DroneTypeID: 6},
			4: {ID: 4, SerialNumber: "SN14", CarriageType: drone.CarriageSensor, DroneTypeID: 6},
		},
		Types: map[int64]drone.DroneType{5: {ID: 5, Manufacturer: "DJI", TypeName: "Mavic"}},
		Latest: map[int64]drone.Dynamics{
			1: {DroneID: 1, Status: drone.StatusOn, BatteryStatus: 80},
			2: {DroneID: 2, Status: drone.StatusIssue},
			3: {DroneID: 3, Status: drone.StatusOn},
		},
	}, nil)
	return store
}

func newModel(refresh RefreshControl) Model {
	return New(Options{Store: testStore(), Refresh: refresh})
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func visibleIDs(m Model) []int64 {
	ids := make([]int64, 0, len(m.rows))
	for _, r := range m.rows {
		ids = append(ids, r.Drone.ID)
	}
	return ids
}

func TestNew_LoadsSnapshot(t *testing.T) {
	m := newModel(nil)
	assert.Equal(t, []int64{1, 2, 3, 4}, visibleIDs(m))
	row, ok := m.selectedRow()
	require.True(t, ok)
	assert.Equal(t, int64(1), row.Drone.ID)
}

func TestToggleRefresh(t *testing.T) {
	refresh := &fakeRefresh{running: true}
	m := newModel(refresh)
	assert.Contains(t, m.View(), "refresh: on")

	m = press(t, m, "r")
	assert.Equal(t, 1, refresh.pauses)
	assert.False(t, refresh.running)
	assert.Contains(t, m.View(), "refresh: paused")

	m = press(t, m, "r")
	assert.Equal(t, 1, refresh.resumes)
	assert.Contains(t, m.View(), "refresh: on")

	refresh.running = false
	refresh.resumeErr = errors.New("nope")
	m = press(t, m, "r")
	assert.Contains(t, m.notice, "resume failed")
}

func TestCycleCarriage(t *testing.T) {
	m := newModel(nil)

	m = press(t, m, "c")
	assert.Equal(t, drone.CarriageNone, m.filters.carriage)
	assert.Equal(t, []int64{3}, visibleIDs(m))

	m = press(t, m, "c", "c")
	assert.Equal(t, drone.CarriageSensor, m.filters.carriage)
	assert.Equal(t, []int64{1, 4}, visibleIDs(m))

	m = press(t, m, "c")
	assert.Empty(t, m.filters.carriage)
	assert.Len(t, m.rows, 4)
}

func TestCycleStatusDropsDronesWithoutTelemetry(t *testing.T) {
	m := newModel(nil)

	m = press(t, m, "s")
	assert.Equal(t, []int64{1, 3}, visibleIDs(m))

	m = press(t, m, "s", "s")
	assert.Equal(t, drone.StatusIssue, m.filters.status)
	assert.Equal(t, []int64{2}, visibleIDs(m))
}

func TestSerialSearch(t *testing.T) {
	m := newModel(nil)

	m = press(t, m, "/")
	require.True(t, m.searching)
	m = press(t, m, "s", "n", "1", "*", "enter")
	assert.False(t, m.searching)
	assert.Equal(t, "sn1*", m.filters.serialGlob)
	assert.Equal(t, []int64{1, 4}, visibleIDs(m))

	// Filters combine.
	m = press(t, m, "s")
	assert.Equal(t, []int64{1}, visibleIDs(m))

	m = press(t, m, "x")
	assert.Len(t, m.rows, 4)
}

func TestSerialSearch_InvalidGlobKeepsPreviousFilter(t *testing.T) {
	m := newModel(nil)
	m = press(t, m, "/", "[", "enter")
	assert.True(t, m.searching)
	assert.Empty(t, m.filters.serialGlob)
	assert.NotEmpty(t, m.notice)
	assert.Len(t, m.rows, 4)

	m = press(t, m, "esc")
	assert.False(t, m.searching)
}

func TestNavigationStaysInRange(t *testing.T) {
	m := newModel(nil)
	m = press(t, m, "k")
	assert.Equal(t, 0, m.selected)
	m = press(t, m, "j", "j", "j", "j", "j")
	assert.Equal(t, 3, m.selected)
	m = press(t, m, "g")
	assert.Equal(t, 0, m.selected)
	m = press(t, m, "G")
	assert.Equal(t, 3, m.selected)

	// Narrowing the list clamps the selection.
	m = press(t, m, "c")
	assert.Equal(t, 0, m.selected)
}

func TestView_ShowsRowsAndErrors(t *testing.T) {
	store := testStore()
	store.Update(nil, &droneapi.APIError{Kind: droneapi.KindStatus, StatusCode: 500})
	store.Update(nil, errors.New("still down"))
	m := New(Options{Store: store})

	view := m.View()
	for _, want := range []string{"SN1-A", "DJI Mavic", "Online", "refresh: off"} {
		assert.Contains(t, view, want)
	}
	assert.True(t, strings.Contains(view, "offline"), "two failures should render as offline")
}

func TestVisibleWindowFollowsSelection(t *testing.T) {
	m := newModel(nil)
	m.height = chromeLines + minTableRows
	m.selected = 3

	start, end := m.visibleWindow()
	assert.Equal(t, 3, end-start)
	assert.True(t, start <= 3 && 3 < end)
}

func TestQuit(t *testing.T) {
	m := newModel(nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
