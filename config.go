package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"desktop2mqtt/internal/backlight"
	"desktop2mqtt/internal/command"
	"desktop2mqtt/internal/idle"
	"desktop2mqtt/internal/notify"
	"desktop2mqtt/internal/sensor"
)

// settings is validated configuration used to wire workers.
type settings struct {
	EntityID string
	Name     string

	MQTTURL      string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTQoS      byte

	IdleEnabled  bool
	IdleSource   string
	IdleTimeout  time.Duration
	IdlePollRate time.Duration

	BacklightProvider string
	BacklightPath     string

	SensorTypes    []sensor.Type
	SensorPollRate time.Duration

	Notifications        bool
	NotificationsBackend string
	CustomCommands       []command.Definition

	HTTPPort int
	HTTPAuth map[string]string
}

// getConfig loads config from config.yaml searched in ., user config dir and /etc/desktop2mqtt.
// DESKTOP2MQTT_CONFIG can point to config file directly.
// It will also set config values based on environment variables.
// DESKTOP2MQTT_MQTT_URL -> mqtt.url
func getConfig() (*viper.Viper, error) {
	config := viper.New()

	if path := os.Getenv("DESKTOP2MQTT_CONFIG"); path != "" {
		config.SetConfigFile(path)
	} else {
		config.SetConfigName("config")
		config.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			config.AddConfigPath(filepath.Join(dir, "desktop2mqtt"))
		}
		config.AddConfigPath("/etc/desktop2mqtt")
	}

	replacer := strings.NewReplacer(".", "_")
	config.SetEnvKeyReplacer(replacer)
	config.SetEnvPrefix("desktop2mqtt")
	config.AutomaticEnv()

	config.SetDefault("mqtt.qos", 0)

	config.SetDefault("modules.idle.enabled", false)
	config.SetDefault("modules.idle.source", idle.SourceX11)
	config.SetDefault("modules.idle.timeout", 300)
	config.SetDefault("modules.idle.poll_rate", 5)

	config.SetDefault("modules.backlight.provider", "")

	config.SetDefault("modules.sensors.poll_rate", 5)

	config.SetDefault("modules.notifications.enabled", false)
	config.SetDefault("modules.notifications.backend", notify.BackendDBus)

	config.SetDefault("http.port", 8080)

	if err := config.ReadInConfig(); err != nil {
		if os.Getenv("DESKTOP2MQTT_CONFIG") != "" {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
		log.Printf("unable to read config file, starting with defaults: %s", err)
	}

	requiredArgs := []string{"mqtt.url", "hass.entity_id", "hass.name"}
	for _, argName := range requiredArgs {
		if config.GetString(argName) == "" {
			return nil, fmt.Errorf("missing required config key: %s", argName)
		}
	}

	return config, nil
}

// loadSettings decodes and validates config, every problem is reported.
func loadSettings(config *viper.Viper) (*settings, error) {
	var result *multierror.Error

	s := &settings{
		EntityID:             config.GetString("hass.entity_id"),
		Name:                 config.GetString("hass.name"),
		MQTTURL:              config.GetString("mqtt.url"),
		MQTTClientID:         config.GetString("mqtt.client_id"),
		MQTTUsername:         config.GetString("mqtt.username"),
		MQTTPassword:         config.GetString("mqtt.password"),
		IdleEnabled:          config.GetBool("modules.idle.enabled"),
		IdleSource:           config.GetString("modules.idle.source"),
		IdleTimeout:          time.Duration(config.GetInt("modules.idle.timeout")) * time.Second,
		IdlePollRate:         time.Duration(config.GetInt("modules.idle.poll_rate")) * time.Second,
		BacklightProvider:    config.GetString("modules.backlight.provider"),
		BacklightPath:        config.GetString("modules.backlight.path"),
		SensorPollRate:       time.Duration(config.GetInt("modules.sensors.poll_rate")) * time.Second,
		Notifications:        config.GetBool("modules.notifications.enabled"),
		NotificationsBackend: config.GetString("modules.notifications.backend"),
		HTTPPort:             config.GetInt("http.port"),
		HTTPAuth:             config.GetStringMapString("http.auth"),
	}

	if s.MQTTClientID == "" {
		s.MQTTClientID = "desktop2mqtt-" + s.EntityID
	}

	qos := config.GetInt("mqtt.qos")
	if qos < 0 || qos > 2 {
		result = multierror.Append(result, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", qos))
	}
	s.MQTTQoS = byte(qos)

	if strings.ContainsAny(s.EntityID, "/+# ") {
		result = multierror.Append(result, fmt.Errorf("hass.entity_id %q must not contain topic separators, wildcards or spaces", s.EntityID))
	}

	if s.IdleEnabled {
		if s.IdleTimeout <= 0 {
			result = multierror.Append(result, fmt.Errorf("modules.idle.timeout must be positive"))
		}
		if s.IdlePollRate <= 0 {
			result = multierror.Append(result, fmt.Errorf("modules.idle.poll_rate must be positive"))
		}
		if _, err := idle.NewSource(s.IdleSource); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if s.BacklightProvider != "" {
		if _, err := backlight.NewProvider(s.BacklightProvider, s.BacklightPath); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if s.Notifications {
		if _, err := notify.NewNotifier(s.NotificationsBackend); err != nil {
			result = multierror.Append(result, err)
		}
	}

	err := config.UnmarshalKey("modules.sensors.types", &s.SensorTypes, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(sensor.TypeDecodeHook(), mapstructure.StringToSliceHookFunc(",")),
	))
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("unable to decode modules.sensors.types: %w", err))
	} else if _, err := sensor.Describe(s.SensorTypes); err != nil {
		result = multierror.Append(result, err)
	}
	if len(s.SensorTypes) > 0 && s.SensorPollRate <= 0 {
		result = multierror.Append(result, fmt.Errorf("modules.sensors.poll_rate must be positive"))
	}

	if err := config.UnmarshalKey("modules.custom_commands", &s.CustomCommands); err != nil {
		result = multierror.Append(result, fmt.Errorf("unable to decode modules.custom_commands: %w", err))
	}
	for _, d := range s.CustomCommands {
		if err := d.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if s.HTTPPort < 0 || s.HTTPPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("http.port must be between 0 and 65535, got %d", s.HTTPPort))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return s, nil
}
