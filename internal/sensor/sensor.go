package sensor

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Supported sensor kinds.
const (
	KindLoad            = "load"
	KindMemory          = "memory"
	KindCoreTemperature = "core-temperature"
	KindBattery         = "battery"
	KindDiskUsage       = "disk-usage"
)

// Type is single configured sensor type.
// Disks is used only by disk-usage.
type Type struct {
	Kind  string   `mapstructure:"type"`
	Disks []string `mapstructure:"disks"`
}

// Class is Home Assistant presentation of sensor value.
type Class int

const (
	ClassGeneric Class = iota
	ClassTemperature
	ClassBattery
)

// DeviceClass returns Home Assistant device_class, empty for generic sensors.
func (c Class) DeviceClass() string {
	switch c {
	case ClassTemperature:
		return "temperature"
	case ClassBattery:
		return "battery"
	}
	return ""
}

// Unit returns unit_of_measurement.
func (c Class) Unit() string {
	if c == ClassTemperature {
		return "°C"
	}
	return "%"
}

// Descriptor is one concrete sensor entity.
type Descriptor struct {
	ID    string
	Name  string
	Class Class
	Icon  string
	Kind  string
	// Path is mount point for disk-usage sensors.
	Path string
}

// DiskUsageID returns sensor id for disk mounted at path.
// Every character outside [a-z0-9_] is replaced with "_".
func DiskUsageID(path string) string {
	id := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, strings.ToLower(path))
	return "disk_usage_" + id
}

// Describe expands configured types into sensor descriptors, in configuration order.
func Describe(sensorTypes []Type) ([]Descriptor, error) {
	var descriptors []Descriptor
	for _, t := range sensorTypes {
		switch t.Kind {
		case KindCoreTemperature:
			descriptors = append(descriptors, Descriptor{ID: "core_temp", Name: "Core Temperature", Class: ClassTemperature, Kind: t.Kind})
		case KindLoad:
			descriptors = append(descriptors, Descriptor{ID: "cpu_load", Name: "CPU Load", Class: ClassGeneric, Kind: t.Kind})
		case KindMemory:
			descriptors = append(descriptors, Descriptor{ID: "memory_usage", Name: "Memory Usage", Class: ClassGeneric, Kind: t.Kind})
		case KindBattery:
			descriptors = append(descriptors, Descriptor{ID: "battery_usage", Name: "", Class: ClassBattery, Kind: t.Kind})
		case KindDiskUsage:
			if len(t.Disks) == 0 {
				return nil, fmt.Errorf("sensor type %s requires at least one disk", t.Kind)
			}
			for _, disk := range t.Disks {
				descriptors = append(descriptors, Descriptor{
					ID:    DiskUsageID(disk),
					Name:  "Disk Usage " + disk,
					Class: ClassGeneric,
					Icon:  "mdi:harddisk",
					Kind:  t.Kind,
					Path:  disk,
				})
			}
		default:
			return nil, fmt.Errorf("unknown sensor type %s", t.Kind)
		}
	}

	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if seen[d.ID] {
			return nil, fmt.Errorf("sensor %s is defined more than once", d.ID)
		}
		seen[d.ID] = true
	}
	return descriptors, nil
}

// TypeDecodeHook allows sensor types to be configured as bare strings ("load")
// or as maps ({type: disk-usage, disks: [/]}).
func TypeDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(Type{}) || from.Kind() != reflect.String {
			return data, nil
		}
		return Type{Kind: data.(string)}, nil
	}
}
