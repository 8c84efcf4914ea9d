package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asi-tiger/tiger-go/pkg/address"
	"github.com/asi-tiger/tiger-go/pkg/config"
)

const sampleConfig = `
port:
  device: /dev/ttyUSB0
  timeout_ms: 250
peripherals:
  - name: "XYStage:XY:31"
    properties:
      MotorSpeedX(mm/s): "5.0"
  - name: "ZStage:Z:32"
log_file: /var/log/tiger.cbor
`

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Port.Device)
	assert.Equal(t, config.DefaultBaudRate, cfg.Port.BaudRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Port.Timeout())
	require.Len(t, cfg.Peripherals, 2)
	assert.Equal(t, "XYStage:XY:31", cfg.Peripherals[0].Name)
	assert.Equal(t, "5.0", cfg.Peripherals[0].Properties["MotorSpeedX(mm/s)"])
	assert.Equal(t, "/var/log/tiger.cbor", cfg.LogFile)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		err  error
	}{
		{
			"missing device",
			"peripherals:\n  - name: \"ZStage:Z:32\"\n",
			config.ErrNoDevice,
		},
		{
			"no peripherals",
			"port:\n  device: /dev/ttyUSB0\n",
			config.ErrNoPeripherals,
		},
		{
			"name without address",
			"port:\n  device: /dev/ttyUSB0\nperipherals:\n  - name: ZStage\n",
			address.ErrNotExtended,
		},
		{
			"duplicate name",
			"port:\n  device: /dev/ttyUSB0\nperipherals:\n" +
				"  - name: \"ZStage:Z:32\"\n  - name: \"ZStage:Z:32\"\n",
			config.ErrDuplicateName,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tc.yaml))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestPortDefaults(t *testing.T) {
	p := &config.PortConfig{}
	assert.Equal(t, config.DefaultTimeout, p.Timeout())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Port.Device)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
