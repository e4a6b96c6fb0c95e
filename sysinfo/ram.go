package sysinfo

import (
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
)

// ramThresholdBytes is an absolute ceiling, not a fraction of total memory:
// past ~50 GiB of used RAM, forcing the backend to load another large model
// stalls the host regardless of how much total memory it has.
const ramThresholdBytes uint64 = 50 << 30

// MemSample is a point-in-time memory reading. Samples are never persisted;
// every check takes a fresh one.
type MemSample struct {
	UsedBytes  uint64
	TotalBytes uint64
}

var sampleMemory = func() (MemSample, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemSample{}, err
	}
	return MemSample{UsedBytes: vm.Used, TotalBytes: vm.Total}, nil
}

// HasHeadroom reports whether current memory usage is strictly under the
// threshold. It is a policy input, not an error: callers use it to decide
// whether an explicit model override should be honored.
func HasHeadroom() bool {
	return hasHeadroom(ramThresholdBytes)
}

func hasHeadroom(thresholdBytes uint64) bool {
	sample, err := sampleMemory()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to sample memory usage, assuming headroom")
		return true
	}

	if sample.UsedBytes >= thresholdBytes {
		log.Warn().
			Float64("used_gb", float64(sample.UsedBytes)/(1<<30)).
			Float64("total_gb", float64(sample.TotalBytes)/(1<<30)).
			Msg("High RAM usage detected. Consider closing other applications.")
		return false
	}
	return true
}
