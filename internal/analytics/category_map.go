package analytics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
)

var (
	ErrCategoryMapCycle    = errors.New("category map contains a cycle")
	ErrCategoryMapConflict = errors.New("category mapped to more than one group")
	ErrCategoryGroupEmpty  = errors.New("category group has no label")
)

// CategoryGroupMap normalizes raw category labels into group labels.
// Chains are resolved at construction so every group label maps to itself,
// which makes ApplyCategoryMap idempotent. The zero value is a pass-through map.
type CategoryGroupMap struct {
	groups map[string]string
}

// NewCategoryGroupMap builds a map from raw category -> group pairs.
func NewCategoryGroupMap(raw map[string]string) (CategoryGroupMap, error) {
	trimmed := make(map[string]string, len(raw))
	for from, to := range raw {
		from = strings.TrimSpace(from)
		to = strings.TrimSpace(to)
		if from == "" {
			continue
		}
		if to == "" {
			return CategoryGroupMap{}, fmt.Errorf("%w: %q", ErrCategoryGroupEmpty, from)
		}
		trimmed[from] = to
	}

	flat := make(map[string]string, len(trimmed))
	for from := range trimmed {
		cur := from
		seen := map[string]struct{}{from: {}}
		for {
			next, ok := trimmed[cur]
			if !ok || next == cur {
				break
			}
			if _, loop := seen[next]; loop {
				return CategoryGroupMap{}, fmt.Errorf("%w: %q", ErrCategoryMapCycle, from)
			}
			seen[next] = struct{}{}
			cur = next
		}
		flat[from] = cur
	}

	return CategoryGroupMap{groups: flat}, nil
}

// CategoryGroupMapFromGroups builds a map from group definitions as found in config.
func CategoryGroupMapFromGroups(groups []domain.CategoryGroup) (CategoryGroupMap, error) {
	raw := make(map[string]string)
	for _, g := range groups {
		label := strings.TrimSpace(g.Group)
		if label == "" {
			return CategoryGroupMap{}, ErrCategoryGroupEmpty
		}
		for _, member := range g.Members {
			member = strings.TrimSpace(member)
			if member == "" {
				continue
			}
			if existing, ok := raw[member]; ok && existing != label {
				return CategoryGroupMap{}, fmt.Errorf("%w: %q -> %q, %q", ErrCategoryMapConflict, member, existing, label)
			}
			raw[member] = label
		}
	}
	return NewCategoryGroupMap(raw)
}

// Lookup returns the group for a raw category label.
func (m CategoryGroupMap) Lookup(category string) (string, bool) {
	group, ok := m.groups[strings.TrimSpace(category)]
	return group, ok
}

// Len returns the number of mapped raw labels
func (m CategoryGroupMap) Len() int {
	return len(m.groups)
}

// ApplyCategoryMap returns a copy of records with each category replaced by its group.
// Categories without a mapping are left unchanged.
func ApplyCategoryMap(records []domain.PreparedRecord, m CategoryGroupMap) []domain.PreparedRecord {
	out := make([]domain.PreparedRecord, len(records))
	copy(out, records)

	if m.Len() == 0 {
		return out
	}

	for i := range out {
		if group, ok := m.Lookup(out[i].ProductCategory); ok {
			out[i].ProductCategory = group
		}
	}
	return out
}
