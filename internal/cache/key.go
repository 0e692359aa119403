package cache

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"escrowScope/internal/model"
)

// Key builds the cache key {chainId}:{eventKind}:{sorted subject ids}.
// Ids are trimmed, deduplicated and sorted numerically so the same logical query
// always maps to the same key.
func Key(chainID uint64, kind model.EventKind, subjectIDs []string) string {
	ids := make([]string, 0, len(subjectIDs))
	seen := make(map[string]struct{}, len(subjectIDs))
	for _, id := range subjectIDs {
		id = canonicalID(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return lessID(ids[i], ids[j])
	})

	var b strings.Builder
	b.WriteString(strconv.FormatUint(chainID, 10))
	b.WriteByte(':')
	b.WriteString(string(kind))
	b.WriteByte(':')
	b.WriteString(strings.Join(ids, ","))
	return b.String()
}

// canonicalID renders numeric ids in decimal so "0x0a" and "10" share a key.
func canonicalID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	n, ok := parseID(id)
	if !ok {
		return id
	}
	return n.String()
}

func parseID(id string) (*big.Int, bool) {
	base := 10
	digits := id
	if strings.HasPrefix(id, "0x") || strings.HasPrefix(id, "0X") {
		base = 16
		digits = id[2:]
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok || n.Sign() < 0 {
		return nil, false
	}
	return n, true
}

func lessID(a, b string) bool {
	na, okA := parseID(a)
	nb, okB := parseID(b)
	switch {
	case okA && okB:
		return na.Cmp(nb) < 0
	case okA != okB:
		return okA
	default:
		return a < b
	}
}
