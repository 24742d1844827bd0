package sensor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/distatus/battery"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/require"
)

func TestSystemReaderRead(t *testing.T) {
	cpuPercent = func(context.Context, time.Duration, bool) ([]float64, error) {
		return []float64{12.345}, nil
	}
	virtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 51.2}, nil
	}
	diskUsage = func(_ context.Context, path string) (*disk.UsageStat, error) {
		if path != "/home" {
			return nil, errors.New("not mounted")
		}
		return &disk.UsageStat{UsedPercent: 77.7}, nil
	}
	sensorsTemperatures = func(context.Context) ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{
			{SensorKey: "acpitz", Temperature: 30},
			{SensorKey: "coretemp_package_id_0", Temperature: 55},
			{SensorKey: "coretemp_core_1", Temperature: 58},
		}, nil
	}
	defer func() {
		cpuPercent = cpu.PercentWithContext
		virtualMemory = mem.VirtualMemoryWithContext
		diskUsage = disk.UsageWithContext
		sensorsTemperatures = host.SensorsTemperaturesWithContext
	}()

	tests := []struct {
		inputDescriptor Descriptor
		expectedValue   float64
		expectedErr     error
	}{
		{inputDescriptor: Descriptor{Kind: KindLoad}, expectedValue: 12.345},
		{inputDescriptor: Descriptor{Kind: KindMemory}, expectedValue: 51.2},
		{inputDescriptor: Descriptor{Kind: KindDiskUsage, Path: "/home"}, expectedValue: 77.7},
		{inputDescriptor: Descriptor{Kind: KindDiskUsage, Path: "/mnt"}, expectedErr: errors.New("not mounted")},
		{inputDescriptor: Descriptor{Kind: KindCoreTemperature}, expectedValue: 58},
		{inputDescriptor: Descriptor{Kind: "gpu"}, expectedErr: errors.New("unknown sensor type gpu")},
	}

	for _, test := range tests {
		value, err := SystemReader{}.Read(context.Background(), test.inputDescriptor)
		require.Equal(t, test.expectedErr, err)
		require.Equal(t, test.expectedValue, value)
	}
}

func TestCoreTemperatureFallback(t *testing.T) {
	tests := []struct {
		mockTemperatures []host.TemperatureStat
		mockErr          error
		expectedValue    float64
		expectedErr      error
	}{
		{
			mockTemperatures: []host.TemperatureStat{{SensorKey: "acpitz", Temperature: 41}},
			mockErr:          errors.New("partial warning"),
			expectedValue:    41,
		},
		{
			expectedErr: errors.New("no temperature sensors found"),
		},
		{
			mockErr:     errors.New("sysfs error"),
			expectedErr: errors.New("sysfs error"),
		},
	}

	for _, test := range tests {
		sensorsTemperatures = func(context.Context) ([]host.TemperatureStat, error) {
			return test.mockTemperatures, test.mockErr
		}
		value, err := coreTemperature(context.Background())
		require.Equal(t, test.expectedErr, err)
		require.Equal(t, test.expectedValue, value)
	}
	sensorsTemperatures = host.SensorsTemperaturesWithContext
}

func TestBatteryCapacity(t *testing.T) {
	defer func() { batteries = battery.GetAll }()

	tests := []struct {
		inputBatteries []*battery.Battery
		inputErr       error
		expectedValue  float64
		expectedErr    error
	}{
		{expectedErr: ErrNoBattery},
		{
			inputBatteries: []*battery.Battery{{Current: 43500, Full: 50000}},
			expectedValue:  87,
		},
		{
			inputBatteries: []*battery.Battery{nil, {Current: 25, Full: 100}},
			inputErr:       battery.Errors{errors.New("no such device"), nil},
			expectedValue:  25,
		},
		{
			inputBatteries: []*battery.Battery{{Current: 10}},
			inputErr:       errors.New("unable to read power supply"),
			expectedErr:    errors.New("unable to read power supply"),
		},
	}

	for _, test := range tests {
		batteries = func() ([]*battery.Battery, error) {
			return test.inputBatteries, test.inputErr
		}
		value, err := batteryCapacity()
		require.Equal(t, test.expectedErr, err)
		require.Equal(t, test.expectedValue, value)
	}
}
