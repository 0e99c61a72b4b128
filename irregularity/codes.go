package irregularity

import (
	"sort"
	"strings"
	"unicode"

	"github.com/go-dedup/simhash"
)

// =============================================================================
// CODE SETS
// =============================================================================

// CodeSet is an exact-match set of job codes.
type CodeSet map[string]struct{}

func NewCodeSet(codes ...string) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s CodeSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// Sorted returns the codes in lexical order.
func (s CodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// NEAR-DUPLICATE SPELLINGS
// =============================================================================

// codeFeatures yields character bigrams of a code after folding case and
// treating '-', '_' and '/' as spaces, so "permit-submittals" and
// "Permit Submittals" hash identically. The folded text is padded with a
// space on each side so first and last letters count as much as the rest.
type codeFeatures struct {
	text string
}

func (c codeFeatures) GetFeatures() []simhash.Feature {
	folded := foldCode(c.text)
	if folded == "" {
		return []simhash.Feature{}
	}
	runes := []rune(" " + folded + " ")
	features := make([]simhash.Feature, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		f := simhash.NewFeature([]byte(string(runes[i : i+2])))
		features = append(features, spreadFeature(spread(f.Sum())))
	}
	return features
}

// spreadFeature is a weight-one feature with a precomputed sum.
type spreadFeature uint64

func (f spreadFeature) Sum() uint64 { return uint64(f) }
func (f spreadFeature) Weight() int { return 1 }

// spread is the splitmix64 finalizer. FNV-1 sums of two-byte inputs share
// most of their high bits, which would pull every short code toward the
// same fingerprint.
func spread(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func foldCode(code string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(code) {
		if r == '-' || r == '_' || r == '/' || unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func codeHash(code string) uint64 {
	return simhash.NewSimhash().GetSimhash(codeFeatures{text: code})
}

// nearDuplicates groups codes whose simhash fingerprints are within
// maxDistance bits of each other. Groups of one are omitted. Codes must be
// passed in a stable order; groups keep that order.
func nearDuplicates(codes []string, maxDistance int) [][]string {
	if maxDistance <= 0 || len(codes) < 2 {
		return nil
	}
	hashes := make([]uint64, len(codes))
	for i, c := range codes {
		hashes[i] = codeHash(c)
	}

	grouped := make([]bool, len(codes))
	var groups [][]string
	for i := range codes {
		if grouped[i] {
			continue
		}
		group := []string{codes[i]}
		for j := i + 1; j < len(codes); j++ {
			if grouped[j] {
				continue
			}
			if int(simhash.Compare(hashes[i], hashes[j])) <= maxDistance {
				group = append(group, codes[j])
				grouped[j] = true
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}
