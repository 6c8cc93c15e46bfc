package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

const minimalConfig = `
input:
  culverts_path: culverts.csv
  precipitation_path: precip.json
  watersheds_path: watersheds.csv
output:
  path: results.csv
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "culverts.csv", cfg.Input.CulvertsPath)
	assert.Equal(t, "precip.json", cfg.Input.PrecipitationPath)
	assert.Equal(t, "watersheds.csv", cfg.Input.WatershedsPath)
	assert.Empty(t, cfg.Input.GeometryPath)
	assert.Equal(t, "results.csv", cfg.Output.Path)
	assert.Equal(t, "./runs/state.json", cfg.Output.StatePath)
	assert.Equal(t, 4, cfg.Run.Workers)
	assert.False(t, cfg.Run.Resume)
	assert.Equal(t, 1.0, cfg.Run.RainfallAdjustment)
	assert.False(t, cfg.HTTP.Enabled)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
input:
  culverts_path: data/naacc.csv
  precipitation_path: data/precip.json
  watersheds_path: data/watersheds.csv
  geometry_path: data/corrected_points.csv
output:
  path: out/results.csv
  state_path: out/state.json
run:
  workers: 8
  resume: true
  rainfall_adjustment: 1.15
http:
  enabled: true
  addr: ":9102"
  shutdown_timeout: 5s
logging:
  level: debug
  format: text
`))
	require.NoError(t, err)

	assert.Equal(t, "data/corrected_points.csv", cfg.Input.GeometryPath)
	assert.Equal(t, 8, cfg.Run.Workers)
	assert.True(t, cfg.Run.Resume)
	assert.Equal(t, 1.15, cfg.Run.RainfallAdjustment)
	assert.True(t, cfg.HTTP.Enabled)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "missing culverts path",
			yaml:    "input:\n  precipitation_path: p.json\noutput:\n  path: o.csv\n",
			wantMsg: "input.culverts_path is required",
		},
		{
			name:    "missing precipitation path",
			yaml:    "input:\n  culverts_path: c.csv\noutput:\n  path: o.csv\n",
			wantMsg: "input.precipitation_path is required",
		},
		{
			name:    "missing watersheds path",
			yaml:    "input:\n  culverts_path: c.csv\n  precipitation_path: p.json\noutput:\n  path: o.csv\n",
			wantMsg: "input.watersheds_path is required",
		},
		{
			name:    "missing output path",
			yaml:    "input:\n  culverts_path: c.csv\n  precipitation_path: p.json\n  watersheds_path: w.csv\n",
			wantMsg: "output.path is required",
		},
		{
			name:    "zero workers",
			yaml:    minimalConfig + "run:\n  workers: 0\n",
			wantMsg: "run.workers",
		},
		{
			name:    "negative rainfall adjustment",
			yaml:    minimalConfig + "run:\n  rainfall_adjustment: -1\n",
			wantMsg: "rainfall_adjustment",
		},
		{
			name:    "bad log level",
			yaml:    minimalConfig + "logging:\n  level: verbose\n",
			wantMsg: "logging.level",
		},
		{
			name:    "unknown key rejected",
			yaml:    minimalConfig + "inptu:\n  typo: true\n",
			wantMsg: "parsing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
