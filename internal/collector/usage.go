package collector

import "hwpulse/internal/system"

// CoreUsage converts two cumulative tick samples taken one interval apart
// into a utilization percentage. Idle-like time is idle plus iowait; guest
// fields are already folded into user/nice by the kernel and excluded.
//
// Policy, in order:
//   - either sample unparsed: unavailable (second return false), never zero
//   - a counter went backward: 0.0 (a transient anomaly, not 64-bit
//     wraparound, which is unreachable at sampling cadence)
//   - zero total delta: 0.0 (no elapsed time reads as no load)
//   - otherwise 100 x (totalDelta - idleDelta) / totalDelta, clamped
//     to [0, 100]
func CoreUsage(prev, curr system.CPUTicks) (float64, bool) {
	if !prev.OK || !curr.OK {
		return 0, false
	}

	prevIdle := prev.Idle + prev.IOWait
	currIdle := curr.Idle + curr.IOWait
	prevBusy := prev.User + prev.Nice + prev.System + prev.IRQ + prev.SoftIRQ + prev.Steal
	currBusy := curr.User + curr.Nice + curr.System + curr.IRQ + curr.SoftIRQ + curr.Steal
	prevTotal := prevIdle + prevBusy
	currTotal := currIdle + currBusy

	if currTotal < prevTotal || currIdle < prevIdle {
		return 0, true
	}
	totalDelta := currTotal - prevTotal
	if totalDelta == 0 {
		return 0, true
	}
	idleDelta := currIdle - prevIdle

	pct := (float64(totalDelta) - float64(idleDelta)) * 100 / float64(totalDelta)
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	return pct, true
}
