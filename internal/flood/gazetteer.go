package flood

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Region is a known flood-prone area with the spellings it is matched by.
type Region struct {
	Name    string
	Aliases []string
}

// floodProneRegions is checked in order; longer names come before the
// names they contain so the most specific region is reported.
var floodProneRegions = []Region{
	{Name: "Thừa Thiên Huế", Aliases: []string{"thừa thiên huế", "thua thien hue"}},
	{Name: "Hà Nội", Aliases: []string{"hà nội", "hanoi"}},
	{Name: "Hồ Chí Minh", Aliases: []string{"hồ chí minh", "ho chi minh"}},
	{Name: "Đà Nẵng", Aliases: []string{"đà nẵng", "da nang"}},
	{Name: "Huế", Aliases: []string{"huế", "hue"}},
	{Name: "Quảng Nam", Aliases: []string{"quảng nam", "quang nam"}},
	{Name: "Quảng Ngãi", Aliases: []string{"quảng ngãi", "quang ngai"}},
	{Name: "Nghệ An", Aliases: []string{"nghệ an", "nghe an"}},
	{Name: "Hà Tĩnh", Aliases: []string{"hà tĩnh", "ha tinh"}},
	{Name: "Quảng Bình", Aliases: []string{"quảng bình", "quang binh"}},
	{Name: "Cần Thơ", Aliases: []string{"cần thơ", "can tho"}},
}

// foldedRegions holds the folded aliases, index-aligned with floodProneRegions.
var foldedRegions = func() [][]string {
	out := make([][]string, len(floodProneRegions))
	for i, r := range floodProneRegions {
		for _, a := range r.Aliases {
			out[i] = append(out[i], Fold(a))
		}
	}
	return out
}()

// FloodProneRegions returns the gazetteer.
func FloodProneRegions() []Region {
	out := make([]Region, len(floodProneRegions))
	copy(out, floodProneRegions)
	return out
}

// MatchFloodProneRegion reports the first gazetteer region whose name occurs
// in location, ignoring case and diacritics.
func MatchFloodProneRegion(location string) (Region, bool) {
	folded := Fold(location)
	if folded == "" {
		return Region{}, false
	}

	for i, aliases := range foldedRegions {
		for _, a := range aliases {
			if strings.Contains(folded, a) {
				return floodProneRegions[i], true
			}
		}
	}
	return Region{}, false
}

// Fold lowercases s, strips combining marks and maps đ to d, so that
// "Đà Nẵng" and "da nang" fold to the same string.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	out = strings.ReplaceAll(out, "đ", "d")
	return strings.Join(strings.Fields(out), " ")
}
