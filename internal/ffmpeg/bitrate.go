package ffmpeg

import "sort"

// DefaultBitrateKbps is used when a bitrate table is empty.
const DefaultBitrateKbps = 3500

// BitrateTable maps a quality code to a hardware encoder bitrate in kbit/s.
// Lookups pick the entry with the largest code not above the requested one,
// so a table that never grows with the code yields a lookup that never grows
// either. Codes below the smallest entry use that entry.
type BitrateTable struct {
	codes []int
	kbps  map[int]int
}

// NewBitrateTable copies m into a lookup table.
func NewBitrateTable(m map[int]int) *BitrateTable {
	t := &BitrateTable{kbps: make(map[int]int, len(m))}
	for code, rate := range m {
		t.codes = append(t.codes, code)
		t.kbps[code] = rate
	}
	sort.Ints(t.codes)
	return t
}

// Lookup returns the bitrate in kbit/s for the quality code.
func (t *BitrateTable) Lookup(code int) int {
	if t == nil || len(t.codes) == 0 {
		return DefaultBitrateKbps
	}
	// First index whose code is greater than the requested one
	i := sort.SearchInts(t.codes, code+1)
	if i == 0 {
		return t.kbps[t.codes[0]]
	}
	return t.kbps[t.codes[i-1]]
}
