package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/dronewatch/internal/config"
	"github.com/five82/dronewatch/internal/droneapi"
)

var apiRecords = map[string][]string{
	"drones": {
		`{"id":1,"serialnumber":"SN-ALPHA","carriage_type":"SEN","carriage_weight":120,"dronetype":"http://h/api/dronetypes/5/","created":"2024-01-01"}`,
		`{"id":2,"serialnumber":"SN-BRAVO","carriage_type":"ACT","carriage_weight":400,"dronetype":"http://h/api/dronetypes/6/","created":"2024-02-01"}`,
		`{"id":3,"serialnumber":"XQ-CHARLIE","carriage_type":"NOT","carriage_weight":0,"dronetype":"http://h/api/dronetypes/5/","created":"2024-03-01"}`,
	},
	"dronetypes": {
		`{"id":5,"manufacturer":"DJI","typename":"Mavic","weight":900,"max_speed":72,"battery_capacity":5000,"control_range":8000,"max_carriage":300}`,
		`{"id":6,"manufacturer":"Parrot","typename":"Anafi","weight":320,"max_speed":55,"battery_capacity":2700,"control_range":4000,"max_carriage":500}`,
	},
	"dronedynamics": {
		`{"drone":"http://h/api/drones/1/","timestamp":"2024-01-01T10:00:00Z","speed":12,"align_roll":0,"align_pitch":0,"align_yaw":0,"longitude":8.6,"latitude":50.1,"battery_status":90,"last_seen":"2024-01-01T10:00:00Z","status":"ON"}`,
		`{"drone":"http://h/api/drones/2/","timestamp":"2024-01-01T10:00:00Z","speed":0,"align_roll":0,"align_pitch":0,"align_yaw":0,"longitude":8.6,"latitude":50.1,"battery_status":15,"last_seen":"2024-01-01T10:00:00Z","status":"IS"}`,
	},
	"drones/1/dynamics": {
		`{"drone":"http://h/api/drones/1/","timestamp":"2024-01-01T09:00:00Z","speed":3,"align_roll":0,"align_pitch":0,"align_yaw":0,"longitude":8.6,"latitude":50.1,"battery_status":95,"last_seen":"2024-01-01T09:00:00Z","status":"OF"}`,
		`{"drone":"http://h/api/drones/1/","timestamp":"2024-01-01T10:00:00Z","speed":12,"align_roll":0,"align_pitch":0,"align_yaw":0,"longitude":8.6,"latitude":50.1,"battery_status":90,"last_seen":"2024-01-01T10:00:00Z","status":"ON"}`,
	},
}

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/")
		if all, ok := apiRecords[path]; ok {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			end := min(offset+limit, len(all))
			var page []string
			if offset < len(all) {
				page = all[offset:end]
			}
			fmt.Fprintf(w, `{"count":%d,"results":[%s]}`, len(all), strings.Join(page, ","))
			return
		}
		// Single objects: drones/{id} and dronetypes/{id}.
		parts := strings.Split(path, "/")
		if len(parts) == 2 {
			id, _ := strconv.Atoi(parts[1])
			for _, rec := range apiRecords[parts[0]] {
				if strings.HasPrefix(rec, fmt.Sprintf(`{"id":%d,`, id)) {
					fmt.Fprint(w, rec)
					return
				}
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupEnv(t *testing.T, token string) string {
	t.Helper()
	t.Setenv(config.TokenEnv, "")
	os.Unsetenv(config.TokenEnv)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	srv := newAPI(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	body := fmt.Sprintf("base_url = %q\ntoken = %q\nretry_delay = \"1ms\"\npage_limit = 10\n", srv.URL+"/api/", token)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDronesCommand(t *testing.T) {
	cfg := setupEnv(t, "secret")

	out, err := execute(t, "--config", cfg, "drones")
	require.NoError(t, err)
	for _, want := range []string{"SN-ALPHA", "SN-BRAVO", "XQ-CHARLIE", "Sensor"} {
		assert.Contains(t, out, want)
	}

	out, err = execute(t, "--config", cfg, "drones", "--serial", "sn-*", "--carriage", "act")
	require.NoError(t, err)
	assert.Contains(t, out, "SN-BRAVO")
	assert.NotContains(t, out, "SN-ALPHA")
	assert.NotContains(t, out, "XQ-CHARLIE")

	out, err = execute(t, "--config", cfg, "drones", "--limit", "1", "--offset", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "XQ-CHARLIE")
	assert.NotContains(t, out, "SN-ALPHA")

	out, err = execute(t, "--config", cfg, "drones", "--all", "--limit", "1", "--type", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "SN-ALPHA")
	assert.Contains(t, out, "XQ-CHARLIE")
	assert.NotContains(t, out, "SN-BRAVO")
}

func TestDronesCommand_InvalidFilter(t *testing.T) {
	cfg := setupEnv(t, "secret")
	_, err := execute(t, "--config", cfg, "drones", "--serial", "[")
	assert.Error(t, err)
	_, err = execute(t, "--config", cfg, "drones", "--created-after", "someday")
	assert.Error(t, err)
}

func TestTypesCommand(t *testing.T) {
	cfg := setupEnv(t, "secret")
	out, err := execute(t, "--config", cfg, "types", "--min-carriage", "400")
	require.NoError(t, err)
	assert.Contains(t, out, "Parrot")
	assert.NotContains(t, out, "DJI")
}

func TestDynamicsCommand(t *testing.T) {
	cfg := setupEnv(t, "secret")

	out, err := execute(t, "--config", cfg, "dynamics", "--status", "IS")
	require.NoError(t, err)
	assert.Contains(t, out, "Issue")
	assert.NotContains(t, out, "Online")

	out, err = execute(t, "--config", cfg, "dynamics", "1", "--latest")
	require.NoError(t, err)
	assert.Contains(t, out, "Online")
	assert.NotContains(t, out, "Offline")

	_, err = execute(t, "--config", cfg, "dynamics", "abc")
	assert.Error(t, err)
}

func TestDroneCommand(t *testing.T) {
	cfg := setupEnv(t, "secret")
	out, err := execute(t, "--config", cfg, "drone", "1")
	require.NoError(t, err)
	for _, want := range []string{"SN-ALPHA", "DJI Mavic", "Online", "90%"} {
		assert.Contains(t, out, want)
	}

	_, err = execute(t, "--config", cfg, "drone", "99")
	assert.ErrorIs(t, err, droneapi.ErrEndpointNotFound)
}

func TestCommands_AuthFailure(t *testing.T) {
	cfg := setupEnv(t, "wrong")
	_, err := execute(t, "--config", cfg, "drones")
	require.ErrorIs(t, err, droneapi.ErrAuthFailed)
	assert.Contains(t, describe(err), "authentication failed")
}

func TestCommands_MissingToken(t *testing.T) {
	cfg := setupEnv(t, "")
	_, err := execute(t, "--config", cfg, "types")
	assert.ErrorIs(t, err, config.ErrMissingToken)
}

func TestLogsCommand(t *testing.T) {
	cfg := setupEnv(t, "")
	logPath := filepath.Join(t.TempDir(), "dw.log")
	lines := `{"level":"info","ts":"2025-01-01T00:00:00Z","logger":"app","msg":"dronewatch started"}
{"level":"warn","ts":"2025-01-01T00:00:01Z","logger":"droneapi","msg":"retrying fetch","endpoint":"drones"}
`
	require.NoError(t, os.WriteFile(logPath, []byte(lines), 0o600))

	out, err := execute(t, "--config", cfg, "--log-file", logPath, "logs", "-n", "1", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:01Z WARN [droneapi] retrying fetch endpoint=drones\n", out)

	out, err = execute(t, "--config", cfg, "--log-file", logPath, "logs", "--logger", "app", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00Z INFO [app] dronewatch started\n", out)

	out, err = execute(t, "--config", cfg, "--log-file", logPath, "logs", "--level", "warn", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:01Z WARN [droneapi] retrying fetch endpoint=drones\n", out)

	_, err = execute(t, "--config", cfg, "--log-file", logPath, "logs", "--level", "loud")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "dronewatch "))
}

func TestDescribe(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, "boom", describe(plain))
}
