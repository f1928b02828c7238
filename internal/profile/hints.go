package profile

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

const bytesPerGB = 1 << 30

// DetectHints gathers capability hints from the host.
func DetectHints(override string, logger *zap.Logger) Hints {
	if logger == nil {
		logger = zap.NewNop()
	}

	hints := Hints{
		Mobile:   isMobileOS(runtime.GOOS),
		Override: ParseOverride(override),
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Warn("memory hint unavailable", zap.Error(err))
		return hints
	}
	hints.MemoryGB = float64(vm.Total) / bytesPerGB
	return hints
}

func isMobileOS(goos string) bool {
	switch goos {
	case "android", "ios":
		return true
	default:
		return false
	}
}
