package backlight

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Supported providers.
const (
	ProviderStub        = "stub"
	ProviderRaspberryPi = "raspberry-pi"
	ProviderSysfs       = "sysfs"
)

// RaspberryPiPath is sysfs directory of official Raspberry Pi touch display.
const RaspberryPiPath = "/sys/class/backlight/rpi_backlight"

// Values of bl_power, see FB_BLANK_UNBLANK and FB_BLANK_POWERDOWN.
const (
	blPowerOn  = 0
	blPowerOff = 4
)

// Backlight controls display power and brightness.
type Backlight interface {
	Power() (bool, error)
	SetPower(on bool) error
	Brightness() (uint32, error)
	SetBrightness(value uint32) error
}

// NewProvider returns backlight for provider name.
// path is used only by sysfs provider.
func NewProvider(provider, path string) (Backlight, error) {
	switch provider {
	case ProviderStub:
		return NewStub(), nil
	case ProviderRaspberryPi:
		return &Sysfs{Path: RaspberryPiPath}, nil
	case ProviderSysfs:
		if path == "" {
			return nil, fmt.Errorf("backlight provider %s requires path", provider)
		}
		return &Sysfs{Path: path}, nil
	}
	return nil, fmt.Errorf("unknown backlight provider %s", provider)
}

// Stub is in-memory backlight, useful on machines without controllable display.
type Stub struct {
	mu         sync.Mutex
	power      bool
	brightness uint32
}

// NewStub creates powered on Stub with full brightness.
func NewStub() *Stub {
	return &Stub{power: true, brightness: 255}
}

func (s *Stub) Power() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.power, nil
}

func (s *Stub) SetPower(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Printf("stub backlight power set to %t", on)
	s.power = on
	return nil
}

func (s *Stub) Brightness() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brightness, nil
}

func (s *Stub) SetBrightness(value uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Printf("stub backlight brightness set to %d", value)
	s.brightness = value
	return nil
}

// Sysfs controls backlight exposed by kernel under /sys/class/backlight/<name>.
type Sysfs struct {
	Path string
}

func (s *Sysfs) Power() (bool, error) {
	value, err := s.read("bl_power")
	if err != nil {
		return false, err
	}
	return value == blPowerOn, nil
}

func (s *Sysfs) SetPower(on bool) error {
	value := uint32(blPowerOff)
	if on {
		value = blPowerOn
	}
	return s.write("bl_power", value)
}

func (s *Sysfs) Brightness() (uint32, error) {
	return s.read("actual_brightness")
}

// SetBrightness clamps value to max_brightness.
func (s *Sysfs) SetBrightness(value uint32) error {
	max, err := s.read("max_brightness")
	if err != nil {
		return err
	}
	if value > max {
		value = max
	}
	return s.write("brightness", value)
}

func (s *Sysfs) read(name string) (uint32, error) {
	data, err := os.ReadFile(filepath.Join(s.Path, name))
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unable to parse %s: %w", name, err)
	}
	return uint32(value), nil
}

func (s *Sysfs) write(name string, value uint32) error {
	return os.WriteFile(filepath.Join(s.Path, name), []byte(strconv.FormatUint(uint64(value), 10)), 0o644)
}
