// Package bytesize renders byte counts as human-readable sizes for the
// client REPL's VIEW -l long listing.
package bytesize

import "fmt"

// ByteSize is a count of bytes that knows how to print itself in the
// binary units VIEW -l expects (KiB/MiB/GiB/TiB).
type ByteSize uint64

// Binary unit constants (×1024), the only scale VIEW -l ever prints.
const (
	B   ByteSize = 1
	KiB ByteSize = 1024 * B
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

// String returns a human-readable representation of the byte size, e.g.
// "1.50GiB" or "512B".
func (b ByteSize) String() string {
	switch {
	case b >= TiB:
		return fmt.Sprintf("%.2fTiB", float64(b)/float64(TiB))
	case b >= GiB:
		return fmt.Sprintf("%.2fGiB", float64(b)/float64(GiB))
	case b >= MiB:
		return fmt.Sprintf("%.2fMiB", float64(b)/float64(MiB))
	case b >= KiB:
		return fmt.Sprintf("%.2fKiB", float64(b)/float64(KiB))
	default:
		return fmt.Sprintf("%dB", b)
	}
}
