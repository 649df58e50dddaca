package scanner

import (
	"errors"
	"fmt"
	"math/rand"
	"net/netip"
)

// ErrInvalidRange reports a target specification that cannot be parsed into
// an IPv4 address or CIDR block.
var ErrInvalidRange = errors.New("invalid address range")

// Source produces the sequence of addresses a scan walks. Next returns
// false only when the sequence is exhausted; infinite sources never do.
type Source interface {
	Next() (netip.Addr, bool)
	// Size returns the number of remaining addresses and whether the
	// sequence is finite.
	Size() (int, bool)
}

func addrToU32(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func u32ToAddr(v uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// cidrSource walks every address of one block in ascending order.
type cidrSource struct {
	next uint32
	last uint32
	done bool
}

// FromCIDR enumerates all addresses inside block, network and broadcast
// included, in ascending numeric order.
func FromCIDR(block string) (Source, error) {
	prefix, err := netip.ParsePrefix(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRange, block, err)
	}
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("%w: %q is not IPv4", ErrInvalidRange, block)
	}
	prefix = prefix.Masked()

	first := addrToU32(prefix.Addr())
	span := uint32(0xFFFFFFFF) >> prefix.Bits()
	return &cidrSource{next: first, last: first + span}, nil
}

func (s *cidrSource) Next() (netip.Addr, bool) {
	if s.done {
		return netip.Addr{}, false
	}
	addr := u32ToAddr(s.next)
	if s.next == s.last {
		s.done = true
	} else {
		s.next++
	}
	return addr, true
}

func (s *cidrSource) Size() (int, bool) {
	if s.done {
		return 0, true
	}
	return int(s.last-s.next) + 1, true
}

// listSource yields a fixed slice of addresses in caller order.
type listSource struct {
	addrs []netip.Addr
	pos   int
}

// FromList enumerates the given addresses in order. Filtering of blank or
// commented entries happens upstream.
func FromList(addrs []netip.Addr) Source {
	return &listSource{addrs: addrs}
}

func (s *listSource) Next() (netip.Addr, bool) {
	if s.pos >= len(s.addrs) {
		return netip.Addr{}, false
	}
	addr := s.addrs[s.pos]
	s.pos++
	return addr, true
}

func (s *listSource) Size() (int, bool) {
	return len(s.addrs) - s.pos, true
}

// FromNeighborhood enumerates spread/2 addresses below center (clamped at
// 0.0.0.0), center itself, and the remaining addresses above it (clamped at
// the top of the space), ascending.
func FromNeighborhood(center netip.Addr, spread int) (Source, error) {
	if !center.Is4() {
		return nil, fmt.Errorf("%w: %s is not IPv4", ErrInvalidRange, center)
	}
	if spread < 0 {
		spread = 0
	}

	c := addrToU32(center)
	below := uint32(spread / 2)
	above := uint32(spread) - below

	first := uint32(0)
	if c > below {
		first = c - below
	}
	last := uint32(0xFFFFFFFF)
	if c < last-above {
		last = c + above
	}

	addrs := make([]netip.Addr, 0, last-first+1)
	for v := first; ; v++ {
		addrs = append(addrs, u32ToAddr(v))
		if v == last {
			break
		}
	}
	return FromList(addrs), nil
}

// reservedRanges are excluded from random public address generation:
// private, loopback, link-local, multicast, benchmarking, documentation,
// and reserved blocks.
var reservedRanges = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.88.99.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
}

// IsPublic reports whether addr falls outside every excluded range.
func IsPublic(addr netip.Addr) bool {
	for _, p := range reservedRanges {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

// randomSource draws addresses uniformly from the 32-bit space, redrawing
// until the draw lands outside the excluded ranges.
type randomSource struct {
	rng *rand.Rand
}

// RandomPublic yields an infinite stream of independently drawn public IPv4
// addresses. Two streams never share a resumption guarantee.
func RandomPublic(seed int64) Source {
	return &randomSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *randomSource) Next() (netip.Addr, bool) {
	for {
		addr := u32ToAddr(s.rng.Uint32())
		if IsPublic(addr) {
			return addr, true
		}
	}
}

func (s *randomSource) Size() (int, bool) { return 0, false }

// sequentialSource counts upward from a fixed point, wrapping past the top
// of the space. Used to resume a randomized scan from a checkpoint.
type sequentialSource struct {
	next uint32
}

// SequentialFrom yields an infinite sequence starting at addr+1, wrapping
// from 255.255.255.255 back to 0.0.0.0 and stepping over non-public blocks
// the random generator would also exclude.
func SequentialFrom(addr netip.Addr) (Source, error) {
	if !addr.Is4() {
		return nil, fmt.Errorf("%w: %s is not IPv4", ErrInvalidRange, addr)
	}
	return &sequentialSource{next: addrToU32(addr) + 1}, nil
}

func (s *sequentialSource) Next() (netip.Addr, bool) {
	for {
		addr := u32ToAddr(s.next)
		s.next++
		if IsPublic(addr) {
			return addr, true
		}
	}
}

func (s *sequentialSource) Size() (int, bool) { return 0, false }
