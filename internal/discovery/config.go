package discovery

// Device groups all entities of one desktop in Home Assistant.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version"`
}

// NewDevice creates Device shared by every registration of entityID.
func NewDevice(entityID, name, version string) Device {
	return Device{
		Identifiers:  []string{"desktop2mqtt_" + entityID},
		Name:         name,
		Manufacturer: "desktop2mqtt",
		Model:        "desktop2mqtt",
		SWVersion:    version,
	}
}

// Entity contains fields common for every registration.
type Entity struct {
	AvailabilityTopic   string `json:"availability_topic"`
	Name                string `json:"name"`
	UniqueID            string `json:"unique_id"`
	StateTopic          string `json:"state_topic,omitempty"`
	Device              Device `json:"device"`
	JSONAttributesTopic string `json:"json_attributes_topic"`
}

// BinarySensorConfig is binary_sensor registration.
type BinarySensorConfig struct {
	Entity
	DeviceClass   string `json:"device_class,omitempty"`
	ValueTemplate string `json:"value_template"`
	PayloadOn     bool   `json:"payload_on"`
	PayloadOff    bool   `json:"payload_off"`
	// ExpireAfter in seconds.
	ExpireAfter uint64 `json:"expire_after,omitempty"`
}

// SensorConfig is sensor registration.
type SensorConfig struct {
	Entity
	DeviceClass       string `json:"device_class,omitempty"`
	ValueTemplate     string `json:"value_template"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	Icon              string `json:"icon,omitempty"`
}

// LightConfig is light registration using json schema.
type LightConfig struct {
	Entity
	CommandTopic string `json:"command_topic"`
	Brightness   bool   `json:"brightness"`
	Schema       string `json:"schema"`
}

// ButtonConfig is button registration for custom command.
type ButtonConfig struct {
	Entity
	CommandTopic string `json:"command_topic"`
	DeviceClass  string `json:"device_class,omitempty"`
	Icon         string `json:"icon,omitempty"`
}
