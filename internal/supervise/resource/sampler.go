// Package resource samples host resource consumption and warns on
// configured-limit breaches.
package resource

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Usage is one host resource sample.
type Usage struct {
	CPUPercent  float64 // total CPU usage percentage
	MemoryMB    float64 // used memory in MB
	DiskPercent float64 // root filesystem usage percentage
}

// Sampler reads host resource usage.
type Sampler interface {
	Sample(ctx context.Context) (Usage, error)
}

// HostSampler reads usage from the local host.
type HostSampler struct {
	diskPath string
}

// NewHostSampler creates a sampler for the local host. diskPath defaults
// to the root filesystem.
func NewHostSampler(diskPath string) *HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostSampler{diskPath: diskPath}
}

// Sample reads CPU, memory and disk usage.
func (s *HostSampler) Sample(ctx context.Context) (Usage, error) {
	var usage Usage

	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return usage, fmt.Errorf("cpu sampling failed: %w", err)
	}
	if len(cpuPercents) > 0 {
		usage.CPUPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return usage, fmt.Errorf("memory sampling failed: %w", err)
	}
	usage.MemoryMB = float64(vm.Used) / (1024 * 1024)

	du, err := disk.UsageWithContext(ctx, s.diskPath)
	if err != nil {
		return usage, fmt.Errorf("disk sampling failed: %w", err)
	}
	usage.DiskPercent = du.UsedPercent

	return usage, nil
}
