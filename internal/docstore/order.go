package docstore

import (
	"fmt"
	"sort"
)

// sortDocuments orders docs by field. Numbers sort numerically, strings
// lexically, and documents missing the field come last in either direction.
// Ties keep key order, which is the store's own order.
func sortDocuments(docs []Document, field string, dir Direction) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Key < docs[j].Key
	})
	if field == "" {
		return
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i].Body[field]
		b, bok := docs[j].Body[field]
		switch {
		case !aok && !bok:
			return false
		case !aok:
			return false
		case !bok:
			return true
		}

		c := compareValues(a, b)
		if dir == Descending {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b interface{}) int {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum:
		// numbers before everything else
		return -1
	case bNum:
		return 1
	}

	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func copyBody(body map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(body))
	for k, v := range body {
		out[k] = v
	}
	return out
}
