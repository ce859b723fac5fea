package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type systemStats struct {
	Host struct {
		Hostname string `json:"hostname"`
		OS       string `json:"os"`
		Platform string `json:"platform"`
		Uptime   uint64 `json:"uptime"`
	} `json:"host"`
	CPU struct {
		Cores   int     `json:"cores"`
		Percent float64 `json:"percent"`
	} `json:"cpu"`
	Memory struct {
		Total   uint64  `json:"total"`
		Used    uint64  `json:"used"`
		Percent float64 `json:"percent"`
	} `json:"memory"`
	Process struct {
		PID        int32   `json:"pid"`
		CPUPercent float64 `json:"cpu_percent"`
		MemoryRSS  uint64  `json:"memory_rss"`
	} `json:"process"`
	Go struct {
		Version     string `json:"version"`
		Goroutines  int    `json:"goroutines"`
		HeapAlloc   uint64 `json:"heap_alloc"`
		GCPauseNano uint64 `json:"gc_pause_ns"`
	} `json:"go"`
}

// getSystemStats reports host, process, and Go runtime statistics.
// GET /api/stats/system
func (s *Server) getSystemStats(c *gin.Context) {
	var stats systemStats

	if info, err := host.Info(); err == nil {
		stats.Host.Hostname = info.Hostname
		stats.Host.OS = info.OS
		stats.Host.Platform = info.Platform
		stats.Host.Uptime = info.Uptime
	}

	stats.CPU.Cores = runtime.NumCPU()
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		stats.CPU.Percent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.Memory.Total = vm.Total
		stats.Memory.Used = vm.Used
		stats.Memory.Percent = vm.UsedPercent
	}

	pid := int32(os.Getpid())
	stats.Process.PID = pid
	if proc, err := process.NewProcess(pid); err == nil {
		if pct, err := proc.CPUPercent(); err == nil {
			stats.Process.CPUPercent = pct
		}
		if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
			stats.Process.MemoryRSS = memInfo.RSS
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats.Go.Version = runtime.Version()
	stats.Go.Goroutines = runtime.NumGoroutine()
	stats.Go.HeapAlloc = ms.HeapAlloc
	stats.Go.GCPauseNano = ms.PauseNs[(ms.NumGC+255)%256]

	c.JSON(http.StatusOK, Response{
		Success: true,
		Msg:     "ok",
		Data:    stats,
	})
}
