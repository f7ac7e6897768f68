package progress

import "fmt"

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

// Scale picks the largest binary unit whose threshold value strictly
// exceeds. Returns the scaled value and the unit name.
func Scale(value uint64) (float64, string) {
	switch {
	case value > gib:
		return float64(value) / gib, "GiB"
	case value > mib:
		return float64(value) / mib, "MiB"
	case value > kib:
		return float64(value) / kib, "KiB"
	default:
		return float64(value), "B"
	}
}

// FormatBytes renders a byte count, e.g. "236.76 MiB" or "512 B".
func FormatBytes(value uint64) string {
	v, unit := Scale(value)
	if unit == "B" {
		return fmt.Sprintf("%d %s", value, unit)
	}
	return fmt.Sprintf("%.2f %s", v, unit)
}

// FormatRate renders a bytes-per-second value, e.g. "78.92 MiB/s".
func FormatRate(bytesPerSec uint64) string {
	return FormatBytes(bytesPerSec) + "/s"
}

func percent(part, total uint64) uint64 {
	if total == 0 {
		return 100
	}
	return part * 100 / total
}
