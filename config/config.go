// Package config loads iwls settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/taigrr/iwls/logging"
	"github.com/taigrr/iwls/spectrum"
)

var (
	validate = validator.New()

	ErrInvalid = errors.New("invalid configuration")
)

const (
	BackendWPA = "wpa"
	BackendIW  = "iw"

	Band24  = "2.4"
	BandAll = "all"
)

type Config struct {
	// Interface is the wireless device to scan with; empty picks the first one found.
	Interface     string        `yaml:"interface"`
	Backend       string        `yaml:"backend" validate:"oneof=wpa iw"`
	Band          string        `yaml:"band" validate:"oneof=2.4 all"`
	WatchInterval time.Duration `yaml:"watch_interval" validate:"min=100ms"`
	// ScanInterval paces the agent, which records every pass.
	ScanInterval  time.Duration `yaml:"scan_interval" validate:"min=1s"`
	DataDir       string        `yaml:"data_dir"`
	MetricsAddr   string        `yaml:"metrics_addr" validate:"omitempty,hostname_port"`

	Probe  ProbeConfig    `yaml:"probe"`
	Upload UploadConfig   `yaml:"upload"`
	MQTT   MQTTConfig     `yaml:"mqtt"`
	Log    logging.Config `yaml:"log"`
}

type ProbeConfig struct {
	URL         string        `yaml:"url" validate:"omitempty,url"`
	PingHost    string        `yaml:"ping_host"`
	PingCount   int           `yaml:"ping_count" validate:"min=1,max=100"`
	PingTimeout time.Duration `yaml:"ping_timeout" validate:"min=100ms"`
	Interval    time.Duration `yaml:"interval" validate:"min=1s"`
}

type UploadConfig struct {
	Endpoint string        `yaml:"endpoint" validate:"omitempty,url"`
	APIKey   string        `yaml:"api_key" validate:"required_with=Endpoint"`
	Loop     string        `yaml:"loop" validate:"required_with=Endpoint"`
	Interval time.Duration `yaml:"interval" validate:"min=1s"`
	Timeout  time.Duration `yaml:"timeout" validate:"min=1s"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker" validate:"omitempty,url"`
	// ClientID defaults to a random iwls-<uuid> per process.
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic" validate:"required_with=Broker"`
	QoS      int    `yaml:"qos" validate:"min=0,max=2"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the settings used when nothing else is given.
func Default() Config {
	return Config{
		Backend:       BackendWPA,
		Band:          Band24,
		WatchInterval: time.Second,
		ScanInterval:  time.Minute,
		DataDir:       "/var/lib/iwls",
		Probe: ProbeConfig{
			URL:         "http://clients3.google.com/generate_204",
			PingCount:   5,
			PingTimeout: 10 * time.Second,
			Interval:    30 * time.Second,
		},
		Upload: UploadConfig{
			Interval: time.Hour,
			Timeout:  10 * time.Minute,
		},
		MQTT: MQTTConfig{
			Topic: "iwls/surveys",
			QoS:   1,
		},
		Log: logging.Config{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file. The result is not validated, so that command
// line flags can still be applied on top; call Validate once they are.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Interface, "IWLS_INTERFACE")
	set(&c.Backend, "IWLS_BACKEND")
	set(&c.Band, "IWLS_BAND")
	set(&c.DataDir, "IWLS_DATA_DIR")
	set(&c.MetricsAddr, "IWLS_METRICS_ADDR")
	set(&c.Upload.Endpoint, "ENDPOINT_URL")
	set(&c.Upload.APIKey, "API_KEY")
	set(&c.Upload.Loop, "LOOP")
	set(&c.MQTT.Broker, "IWLS_MQTT_BROKER")
	set(&c.Log.Level, "IWLS_LOG_LEVEL")
	set(&c.Log.Format, "IWLS_LOG_FORMAT")
}

// Validate checks the struct tags and reports every failing field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// SpectrumBand maps the configured band name onto the channel universe.
func (c Config) SpectrumBand() spectrum.Band {
	if c.Band == BandAll {
		return spectrum.BandAll
	}
	return spectrum.Band24
}
