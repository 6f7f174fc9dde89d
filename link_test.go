package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/config"
)

const testProfiles = `
profiles:
  default:
    rate: 100
  bolt:
    format: generic
    rate: 100
    hold: 5s
    enable: false
`

func writeTestProfiles(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crazypwm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testProfiles), 0644))
	return path
}

// runLoadConfig parses args like the crazypwm binary and loads the config of the pwm command.
func runLoadConfig(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()

	var cfg config.Config
	var loadErr error

	app := cli.NewApp()
	app.Flags = GLOBAL_FLAGS
	app.Commands = []cli.Command{
		{
			Name:  "pwm",
			Flags: motorFlags,
			Action: func(c *cli.Context) error {
				cfg, loadErr = loadConfig(c)
				return nil
			},
		},
	}

	require.NoError(t, app.Run(append([]string{"crazypwm"}, args...)))
	return cfg, loadErr
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := runLoadConfig(t, "pwm")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestFlagsOverrideProfileAndEnvironment(t *testing.T) {
	path := writeTestProfiles(t)
	t.Setenv("CRAZYPWM_HOLD", "250ms")
	t.Setenv("CRAZYPWM_STOP_REPEATS", "5")

	cfg, err := runLoadConfig(t, "--config", path, "--profile", "bolt",
		"pwm", "--rate", "20", "--hold", "1s", "--pwm-port", "10", "--timeout-ms", "80")
	require.NoError(t, err)

	assert.Equal(t, float64(20), cfg.Rate)     // flag over profile
	assert.Equal(t, time.Second, cfg.Hold)     // flag over environment
	assert.Equal(t, 5, cfg.StopRepeats)        // environment over default
	assert.Equal(t, "generic", cfg.Format)     // profile over default
	assert.False(t, cfg.Enable)                // profile over default
	assert.Equal(t, uint8(0x0A), cfg.PWMPort)  // flag
	assert.Equal(t, uint16(80), cfg.TimeoutMs) // flag
}

func TestNoEnableFlag(t *testing.T) {
	cfg, err := runLoadConfig(t, "pwm")
	require.NoError(t, err)
	assert.True(t, cfg.Enable)

	cfg, err = runLoadConfig(t, "pwm", "--no-enable")
	require.NoError(t, err)
	assert.False(t, cfg.Enable)
}

func TestUriFlagOverridesEnvironment(t *testing.T) {
	t.Setenv("CRAZYFLIE_URI", "usb://0")

	cfg, err := runLoadConfig(t, "pwm")
	require.NoError(t, err)
	assert.Equal(t, "usb://0", cfg.URI)

	cfg, err = runLoadConfig(t, "--uri", "radio://0/10/250K/E7E7E7E7E7", "pwm")
	require.NoError(t, err)
	assert.Equal(t, "radio://0/10/250K/E7E7E7E7E7", cfg.URI)
}

func TestOutOfRangeFlagsAreRejected(t *testing.T) {
	_, err := runLoadConfig(t, "pwm", "--pwm-port", "256")
	assert.Error(t, err)

	_, err = runLoadConfig(t, "pwm", "--pwm-port", "5")
	assert.Error(t, err) // the log port

	_, err = runLoadConfig(t, "pwm", "--timeout-ms", "65536")
	assert.Error(t, err)

	_, err = runLoadConfig(t, "pwm", "--rate", "2e9")
	assert.Error(t, err)
}

func TestUnknownProfileListsAvailable(t *testing.T) {
	_, err := runLoadConfig(t, "--config", writeTestProfiles(t), "--profile", "cf21", "pwm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: bolt, default")
}
