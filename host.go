package stream

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	xcpu "golang.org/x/sys/cpu"
)

// virtualMemory is swapped in tests.
var virtualMemory = mem.VirtualMemory

// HostInfo describes the machine the benchmark runs on.
type HostInfo struct {
	ModelName     string   `json:"model_name,omitempty"`
	LogicalCores  int      `json:"logical_cores"`
	PhysicalCores int      `json:"physical_cores,omitempty"`
	GOMAXPROCS    int      `json:"gomaxprocs"`
	TotalMemory   uint64   `json:"total_memory,omitempty"`
	AvailMemory   uint64   `json:"available_memory,omitempty"`
	Features      []string `json:"features,omitempty"`
	GOOS          string   `json:"goos"`
	GOARCH        string   `json:"goarch"`
	GoVersion     string   `json:"go_version"`
}

// DescribeHost collects CPU and memory details. Fields that cannot be read
// are left empty.
func DescribeHost() HostInfo {
	h := HostInfo{
		LogicalCores: runtime.NumCPU(),
		GOMAXPROCS:   runtime.GOMAXPROCS(0),
		Features:     cpuFeatures(),
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		GoVersion:    runtime.Version(),
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		h.ModelName = strings.TrimSpace(infos[0].ModelName)
	} else if err != nil {
		Logger().WithError(err).Debug("cpu info unavailable")
	}
	if n, err := cpu.Counts(false); err == nil {
		h.PhysicalCores = n
	}
	if vm, err := virtualMemory(); err == nil {
		h.TotalMemory = vm.Total
		h.AvailMemory = vm.Available
	} else {
		Logger().WithError(err).Debug("memory info unavailable")
	}
	return h
}

// CheckAvailableMemory fails with a memory error when bytes exceeds the
// memory the host reports as available. If the host cannot be queried the
// check passes.
func CheckAvailableMemory(bytes uint64) error {
	vm, err := virtualMemory()
	if err != nil {
		Logger().WithError(err).Debug("skipping memory check")
		return nil
	}
	if bytes > vm.Available {
		return NewMemoryError("Allocate",
			fmt.Sprintf("arrays need %.1f MiB but only %.1f MiB is available", mib(bytes), mib(vm.Available)),
			ErrOutOfMemory)
	}
	return nil
}

// cpuFeatures lists the SIMD extensions relevant to streaming loads and stores.
func cpuFeatures() []string {
	var features []string
	add := func(ok bool, name string) {
		if ok {
			features = append(features, name)
		}
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		add(xcpu.X86.HasSSE2, "SSE2")
		add(xcpu.X86.HasSSE41 || xcpu.X86.HasSSE42, "SSE4")
		add(xcpu.X86.HasAVX, "AVX")
		add(xcpu.X86.HasAVX2, "AVX2")
		add(xcpu.X86.HasFMA, "FMA")
		add(xcpu.X86.HasAVX512F, "AVX512F")
		add(xcpu.X86.HasERMS, "ERMS")
	case "arm64":
		add(xcpu.ARM64.HasASIMD, "ASIMD")
		add(xcpu.ARM64.HasFPHP, "FPHP")
		add(xcpu.ARM64.HasSVE, "SVE")
	}
	return features
}

// String formats the host the way GetCPUInfo does.
func (h HostInfo) String() string {
	var sb strings.Builder
	model := h.ModelName
	if model == "" {
		model = "unknown"
	}
	fmt.Fprintf(&sb, "CPU: %s (%d logical", model, h.LogicalCores)
	if h.PhysicalCores > 0 {
		fmt.Fprintf(&sb, ", %d physical", h.PhysicalCores)
	}
	fmt.Fprintf(&sb, " cores), GOMAXPROCS=%d, %s/%s\n", h.GOMAXPROCS, h.GOOS, h.GOARCH)
	if h.TotalMemory > 0 {
		fmt.Fprintf(&sb, "Memory: %.1f GiB total, %.1f GiB available\n", gib(h.TotalMemory), gib(h.AvailMemory))
	}
	if len(h.Features) == 0 {
		sb.WriteString("CPU features: none detected\n")
	} else {
		sb.WriteString("CPU features: " + strings.Join(h.Features, ", ") + "\n")
	}
	return sb.String()
}

func mib(b uint64) float64 { return float64(b) / (1 << 20) }
func gib(b uint64) float64 { return float64(b) / (1 << 30) }
