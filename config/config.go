package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/motor"
)

// Config holds the settings of a motor test run.
type Config struct {
	URI         string        `yaml:"uri" env:"CRAZYFLIE_URI"`
	Format      string        `yaml:"format" env:"CRAZYPWM_FORMAT"` // port or generic
	PWMPort     uint8         `yaml:"pwmPort" env:"CRAZYPWM_PORT"`
	Rate        float64       `yaml:"rate" env:"CRAZYPWM_RATE"` // Hz
	Hold        time.Duration `yaml:"hold" env:"CRAZYPWM_HOLD"`
	Ramp        time.Duration `yaml:"ramp" env:"CRAZYPWM_RAMP"`
	Max         uint16        `yaml:"max" env:"CRAZYPWM_MAX"`
	Enable      bool          `yaml:"enable" env:"CRAZYPWM_ENABLE"`
	TimeoutMs   uint16        `yaml:"timeoutMs" env:"CRAZYPWM_TIMEOUT_MS"`
	StopRepeats int           `yaml:"stopRepeats" env:"CRAZYPWM_STOP_REPEATS"`
	Monitor     bool          `yaml:"monitor" env:"CRAZYPWM_MONITOR"`
	CacheDir    string        `yaml:"cacheDir" env:"CRAZYPWM_CACHE_DIR"`
	Listen      string        `yaml:"listen" env:"CRAZYPWM_LISTEN"`
}

// Default returns the built in settings.
func Default() Config {
	return Config{
		URI:         "radio://0/80/2M/E7E7E7E7E7",
		Format:      "port",
		PWMPort:     0x09,
		Rate:        50,
		Hold:        2 * time.Second,
		Max:         65535,
		Enable:      true,
		StopRepeats: 3,
		Listen:      ":8000",
	}
}

type profileFile struct {
	Profiles map[string]map[string]interface{} `yaml:"profiles"`
}

// Load layers the named profile of the YAML file at path and then the
// environment over the defaults. An empty path skips the file.
func Load(path, profile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadProfile(&cfg, path, profile); err != nil {
			return cfg, err
		}
	} else if profile != "" {
		return cfg, fmt.Errorf("config: profile %q requested without a profile file", profile)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: environment: %w", err)
	}

	return cfg, nil
}

func readProfileFile(path string) (profileFile, error) {
	var file profileFile

	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("config: %s: %w", path, err)
	}
	return file, nil
}

func (f profileFile) names() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func loadProfile(cfg *Config, path, profile string) error {
	file, err := readProfileFile(path)
	if err != nil {
		return err
	}

	if profile == "" {
		profile = "default"
		if _, ok := file.Profiles[profile]; !ok {
			return nil
		}
	}

	settings, ok := file.Profiles[profile]
	if !ok {
		return fmt.Errorf("config: %s: no profile %q, available: %s", path, profile, strings.Join(file.names(), ", "))
	}

	// re-encode the one profile so unset keys keep their defaults
	raw, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("config: profile %q: %w", profile, err)
	}
	if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
		return fmt.Errorf("config: profile %q: %w", profile, err)
	}
	return nil
}

// Profiles lists the profile names defined in the file at path.
func Profiles(path string) ([]string, error) {
	file, err := readProfileFile(path)
	if err != nil {
		return nil, err
	}
	return file.names(), nil
}

func (c Config) Validate() error {
	if !motor.ValidRate(c.Rate) {
		return fmt.Errorf("config: rate must be above 0 and at most %d Hz, got %g", motor.MaxRate, c.Rate)
	}
	if c.Hold < 0 {
		return fmt.Errorf("config: hold must not be negative, got %s", c.Hold)
	}
	if c.Ramp < 0 {
		return fmt.Errorf("config: ramp must not be negative, got %s", c.Ramp)
	}
	if c.Format != "port" && c.Format != "generic" {
		return fmt.Errorf("config: format must be port or generic, got %q", c.Format)
	}
	if c.Max == 0 {
		return fmt.Errorf("config: max must be positive")
	}
	if c.PWMPort > 0x0F {
		return fmt.Errorf("config: pwm port must fit in 4 bits, got 0x%X", c.PWMPort)
	}
	if crtp.Port(c.PWMPort).Reserved() {
		return fmt.Errorf("config: pwm port 0x%X is already used by the firmware", c.PWMPort)
	}
	return nil
}
