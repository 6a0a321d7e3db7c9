package analytics

import (
	"testing"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categories(records []domain.PreparedRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ProductCategory)
	}
	return out
}

func TestApplyCategoryMap_MergesNearDuplicates(t *testing.T) {
	m, err := CategoryGroupMapFromGroups([]domain.CategoryGroup{
		{Group: "Pants", Members: []string{"Jeans", "Pants & Capris"}},
	})
	require.NoError(t, err)

	prepared := mustPrepare(t,
		item("a", "Jeans", "b", "30", "0", soldTimestamp),
		item("b", "Pants & Capris", "b", "70", "0", soldTimestamp),
		item("c", "Tops & Tees", "b", "20", "0", soldTimestamp),
	)

	mapped := ApplyCategoryMap(prepared, m)
	assert.Equal(t, []string{"Pants", "Pants", "Tops & Tees"}, categories(mapped))
	assert.Equal(t, []string{"Jeans", "Pants & Capris", "Tops & Tees"}, categories(prepared), "input must not be mutated")

	result := Summarize(mapped, domain.SummaryOptions{})
	require.Len(t, result.RevenueByCategory, 2)
	assert.Equal(t, "Pants", result.RevenueByCategory[0].Label)
	assertDecimal(t, "100", result.RevenueByCategory[0].Revenue)
}

func TestApplyCategoryMap_Idempotent(t *testing.T) {
	m, err := NewCategoryGroupMap(map[string]string{
		"Jeans":          "Pants",
		"Pants & Capris": "Pants",
		"Pants":          "Bottoms",
		"Shorts":         "Bottoms",
		"Bottoms":        "Bottoms",
	})
	require.NoError(t, err)

	prepared := mustPrepare(t,
		item("a", "Jeans", "b", "1", "0", soldTimestamp),
		item("b", "Pants", "b", "1", "0", ""),
		item("c", "Shorts", "b", "1", "0", soldTimestamp),
		item("d", "Socks", "b", "1", "0", soldTimestamp),
		item("e", "", "b", "1", "0", soldTimestamp),
	)

	once := ApplyCategoryMap(prepared, m)
	twice := ApplyCategoryMap(once, m)

	assert.Equal(t, asJSON(t, once), asJSON(t, twice))
	assert.Equal(t, []string{"Bottoms", "Bottoms", "Bottoms", "Socks", ""}, categories(once))
}

func TestApplyCategoryMap_ZeroValuePassesThrough(t *testing.T) {
	prepared := mustPrepare(t, item("a", "Jeans", "b", "1", "0", soldTimestamp))

	mapped := ApplyCategoryMap(prepared, CategoryGroupMap{})
	assert.Equal(t, asJSON(t, prepared), asJSON(t, mapped))
}

func TestNewCategoryGroupMap(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]string
		wantErr error
		lookups map[string]string
	}{
		{
			name:    "chain is flattened",
			raw:     map[string]string{"A": "B", "B": "C"},
			lookups: map[string]string{"A": "C", "B": "C"},
		},
		{
			name:    "self mapping allowed",
			raw:     map[string]string{"Pants": "Pants", "Jeans": "Pants"},
			lookups: map[string]string{"Pants": "Pants", "Jeans": "Pants"},
		},
		{
			name:    "labels are trimmed",
			raw:     map[string]string{" Jeans ": " Pants"},
			lookups: map[string]string{"Jeans": "Pants", "  Jeans": "Pants"},
		},
		{
			name:    "cycle rejected",
			raw:     map[string]string{"A": "B", "B": "A"},
			wantErr: ErrCategoryMapCycle,
		},
		{
			name:    "long cycle rejected",
			raw:     map[string]string{"A": "B", "B": "C", "C": "A"},
			wantErr: ErrCategoryMapCycle,
		},
		{
			name:    "blank group rejected",
			raw:     map[string]string{"A": "  "},
			wantErr: ErrCategoryGroupEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewCategoryGroupMap(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for from, want := range tt.lookups {
				got, ok := m.Lookup(from)
				assert.True(t, ok, from)
				assert.Equal(t, want, got, from)
			}
		})
	}
}

func TestCategoryGroupMapFromGroups_Conflict(t *testing.T) {
	_, err := CategoryGroupMapFromGroups([]domain.CategoryGroup{
		{Group: "Pants", Members: []string{"Jeans"}},
		{Group: "Denim", Members: []string{"Jeans"}},
	})
	assert.ErrorIs(t, err, ErrCategoryMapConflict)

	_, err = CategoryGroupMapFromGroups([]domain.CategoryGroup{{Group: "", Members: []string{"Jeans"}}})
	assert.ErrorIs(t, err, ErrCategoryGroupEmpty)
}
