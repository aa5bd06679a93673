package schema

import (
	"sort"
	"strings"

	"dataport/internal/logger"
	"go.uber.org/zap"
)

// LinkDependencies fills TableInfo.Dependencies from the foreign keys,
// keeping only references to other tables in the same set.
func LinkDependencies(tables []TableInfo) {
	known := make(map[string]string, len(tables))
	for _, t := range tables {
		known[strings.ToUpper(t.Name)] = t.Name
	}

	for i := range tables {
		t := &tables[i]
		t.Dependencies = t.Dependencies[:0]
		added := make(map[string]bool)
		for _, fk := range t.ForeignKeys {
			ref, ok := known[strings.ToUpper(fk.RefTable)]
			if !ok || strings.EqualFold(ref, t.Name) || added[ref] {
				continue
			}
			added[ref] = true
			t.Dependencies = append(t.Dependencies, ref)
		}
	}
}

// SortByDependencies orders tables so referenced tables come before the tables pointing at them.
// Cycles are broken by picking the table with the fewest unresolved references,
// preferring one that sits in a two-table cycle, then the smallest name.
func SortByDependencies(tables []TableInfo) []TableInfo {
	byName := make(map[string]*TableInfo, len(tables))
	for i := range tables {
		byName[tables[i].Name] = &tables[i]
	}

	sorted := make([]TableInfo, 0, len(tables))
	processed := make(map[string]bool, len(tables))

	for len(sorted) < len(tables) {
		added := false
		for _, t := range tables {
			if processed[t.Name] {
				continue
			}
			ready := true
			for _, dep := range t.Dependencies {
				if _, known := byName[dep]; known && !processed[dep] {
					ready = false
					break
				}
			}
			if ready {
				sorted = append(sorted, t)
				processed[t.Name] = true
				added = true
			}
		}
		if added {
			continue
		}

		var (
			best      *TableInfo
			bestScore int
		)
		candidates := make([]string, 0, len(tables))
		for _, t := range tables {
			if !processed[t.Name] {
				candidates = append(candidates, t.Name)
			}
		}
		sort.Strings(candidates)

		for _, name := range candidates {
			t := byName[name]
			score := 0
			circular := false
			for _, dep := range t.Dependencies {
				if processed[dep] {
					continue
				}
				score -= 100
				if other, ok := byName[dep]; ok {
					for _, back := range other.Dependencies {
						if back == t.Name {
							circular = true
						}
					}
				}
			}
			if circular {
				score += 500
			}
			if best == nil || score > bestScore {
				best, bestScore = t, score
			}
		}

		logger.Get().Debug("breaking circular dependency",
			zap.String("table", best.Name), zap.Int("score", bestScore))
		sorted = append(sorted, *best)
		processed[best.Name] = true
	}

	return sorted
}
