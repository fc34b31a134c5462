package utils

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is a point-in-time snapshot of the host the bot runs on.
type SystemStats struct {
	Platform      string
	KernelVersion string
	GoVersion     string
	CPUCount      int
	CPUPercent    float64
	MemUsed       string
	Goroutines    int
}

// CollectSystemStats gathers host and runtime statistics for the status
// embed. Individual probe failures leave zero values rather than failing the
// whole snapshot.
func CollectSystemStats() SystemStats {
	stats := SystemStats{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
	}

	if hostInfo, err := host.Info(); err == nil {
		stats.Platform = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
		stats.KernelVersion = hostInfo.KernelVersion
	}
	if count, err := cpu.Counts(true); err == nil {
		stats.CPUCount = count
	}
	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		stats.CPUPercent = percent[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemUsed = fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024)
	}

	return stats
}
