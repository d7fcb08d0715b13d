package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Disambiguate makes unit IDs unique. Colliding IDs get a suffix derived from the
// canonical signature, and from the location when the signatures are equal too.
// The result depends only on the units, not on their order.
func Disambiguate(units []*CodeUnit) {
	groups := make(map[string][]*CodeUnit)
	for _, u := range units {
		groups[u.ID] = append(groups[u.ID], u)
	}

	ids := make([]string, 0, len(groups))
	for id, group := range groups {
		if len(group) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		group := groups[id]
		bySig := make(map[string]int)
		for _, u := range group {
			bySig[signatureHash(u)]++
		}
		for _, u := range group {
			h := signatureHash(u)
			if bySig[h] > 1 {
				h = shortHash(fmt.Sprintf("%s|%s|%d", h, u.Filepath, u.StartLine))
			}
			u.ID = id + "#" + h
		}
	}
}

func signatureHash(u *CodeUnit) string {
	fingerprint := strings.Join([]string{
		string(u.Kind),
		u.ImplType,
		u.Trait,
		canonicalize(u.Signature),
	}, "|")
	return shortHash(fingerprint)
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:4])
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
