// internal/common/catalogindex/index_test.go
package catalogindex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   []Equality
	}{
		{name: "empty", filter: "", want: nil},
		{name: "blank", filter: "   ", want: nil},
		{
			name:   "single quoted",
			filter: "vendor = 'Kampala'",
			want:   []Equality{{Field: "vendor", Value: "Kampala"}},
		},
		{
			name:   "double quoted",
			filter: `vendor = "Kampala Road"`,
			want:   []Equality{{Field: "vendor", Value: "Kampala Road"}},
		},
		{
			name:   "conjunction",
			filter: "vendor = 'Kampala' and currency = 'UGX'",
			want: []Equality{
				{Field: "vendor", Value: "Kampala"},
				{Field: "currency", Value: "UGX"},
			},
		},
		{
			name:   "escaped quote",
			filter: `vendor = 'Owino\'s market'`,
			want:   []Equality{{Field: "vendor", Value: "Owino's market"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilter_Invalid(t *testing.T) {
	for _, filter := range []string{
		"vendor",
		"vendor = Kampala",
		"vendor > 'Kampala'",
		"vendor = 'Kampala' OR currency = 'UGX'",
	} {
		t.Run(filter, func(t *testing.T) {
			_, err := ParseFilter(filter)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFilter))
		})
	}
}

func TestEqualityFilter_RoundTrips(t *testing.T) {
	values := []string{"Kampala", "Owino's market", `back\slash`}

	for _, v := range values {
		t.Run(v, func(t *testing.T) {
			clauses, err := ParseFilter(EqualityFilter("vendor", v))
			require.NoError(t, err)
			require.Len(t, clauses, 1)
			assert.Equal(t, "vendor", clauses[0].Field)
			assert.Equal(t, v, clauses[0].Value)
		})
	}

	assert.Equal(t, "vendor = 'Kampala'", EqualityFilter("vendor", "Kampala"))
}
