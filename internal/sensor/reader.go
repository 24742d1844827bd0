package sensor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/distatus/battery"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

var (
	// How long cpu usage is sampled.
	cpuSampleInterval = 500 * time.Millisecond

	// Mocks for tests.
	cpuPercent          = cpu.PercentWithContext
	virtualMemory       = mem.VirtualMemoryWithContext
	diskUsage           = disk.UsageWithContext
	sensorsTemperatures = host.SensorsTemperaturesWithContext
	batteries           = battery.GetAll
)

// ErrNoBattery is returned when no battery is present.
var ErrNoBattery = errors.New("no battery found")

// Reader reads current value of sensor.
type Reader interface {
	Read(ctx context.Context, d Descriptor) (float64, error)
}

// SystemReader reads sensors of local machine.
type SystemReader struct{}

// Read returns current value for descriptor.
func (SystemReader) Read(ctx context.Context, d Descriptor) (float64, error) {
	switch d.Kind {
	case KindLoad:
		percent, err := cpuPercent(ctx, cpuSampleInterval, false)
		if err != nil {
			return 0, err
		}
		if len(percent) == 0 {
			return 0, errors.New("no cpu usage reported")
		}
		return percent[0], nil
	case KindMemory:
		vm, err := virtualMemory(ctx)
		if err != nil {
			return 0, err
		}
		return vm.UsedPercent, nil
	case KindDiskUsage:
		usage, err := diskUsage(ctx, d.Path)
		if err != nil {
			return 0, err
		}
		return usage.UsedPercent, nil
	case KindCoreTemperature:
		return coreTemperature(ctx)
	case KindBattery:
		return batteryCapacity()
	}
	return 0, fmt.Errorf("unknown sensor type %s", d.Kind)
}

// coreTemperature returns highest cpu package/core temperature.
// Falls back to first reported temperature when no cpu sensor is recognized.
func coreTemperature(ctx context.Context) (float64, error) {
	temps, err := sensorsTemperatures(ctx)
	// gopsutil returns partial results together with warnings.
	if len(temps) == 0 {
		if err == nil {
			err = errors.New("no temperature sensors found")
		}
		return 0, err
	}

	found := false
	var max float64
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)
		if !strings.Contains(key, "core") && !strings.Contains(key, "package") && !strings.Contains(key, "cpu") && !strings.Contains(key, "k10temp") {
			continue
		}
		if !found || t.Temperature > max {
			max = t.Temperature
			found = true
		}
	}
	if !found {
		return temps[0].Temperature, nil
	}
	return max, nil
}

// batteryCapacity returns charge in percent of first battery reporting full capacity.
// Partial errors are ignored as long as one battery has usable readings.
func batteryCapacity() (float64, error) {
	bats, err := batteries()
	for _, b := range bats {
		if b == nil || b.Full <= 0 {
			continue
		}
		return b.Current / b.Full * 100, nil
	}
	if err != nil {
		return 0, err
	}
	return 0, ErrNoBattery
}
