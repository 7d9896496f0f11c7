package orderbook

import (
	"hash/crc32"
	"strings"
)

// checksumDepth is how many levels per side feed the CRC32 checksum, per
// OKX's protocol.
const checksumDepth = 25

// Checksum computes the CRC32/IEEE checksum over the top 25 levels per
// side, interleaved bid/ask, using each level's exact lexical price:size
// strings — not a re-formatted decimal, since trailing zeros and decimal
// placement are part of the hashed bytes.
//
// Example: bids [(3366.1,7),(3366,6)], asks [(3366.8,9),(3368,8)] encode as
// "3366.1:7:3366.8:9:3366:6:3368:8".
func (l *Ladder) Checksum() int32 {
	bids := l.topRawBids(checksumDepth)
	asks := l.topRawAsks(checksumDepth)

	var sb strings.Builder
	max := len(bids)
	if len(asks) > max {
		max = len(asks)
	}
	first := true
	for i := 0; i < max; i++ {
		if i < len(bids) {
			writeLevel(&sb, bids[i], &first)
		}
		if i < len(asks) {
			writeLevel(&sb, asks[i], &first)
		}
	}

	sum := crc32.ChecksumIEEE([]byte(sb.String()))
	return int32(sum)
}

func writeLevel(sb *strings.Builder, lvl level, first *bool) {
	if !*first {
		sb.WriteByte(':')
	}
	*first = false
	sb.WriteString(lvl.PriceStr)
	sb.WriteByte(':')
	sb.WriteString(lvl.SizeStr)
}

// VerifyChecksum reports whether the ladder's current top-25 state matches
// the exchange-reported checksum.
func (l *Ladder) VerifyChecksum(want int32) bool {
	return l.Checksum() == want
}
