package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	id := NewID()
	assert.False(t, id.IsZero())

	parsed, ok := ParseID(id.String())
	require.True(t, ok)
	assert.Equal(t, id, parsed)

	_, ok = ParseID("not-a-uuid")
	assert.False(t, ok)

	assert.True(t, ID("").IsZero())
}

func TestTimestamps_Touch(t *testing.T) {
	var ts Timestamps
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ts.Touch(created)
	assert.Equal(t, created, ts.CreatedAt)
	assert.Equal(t, created, ts.UpdatedAt)

	later := created.Add(time.Hour)
	ts.Touch(later)
	assert.Equal(t, created, ts.CreatedAt)
	assert.Equal(t, later, ts.UpdatedAt)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		name       string
		in         Pagination
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"zero value", Pagination{}, 1, DefaultPageSize, 0},
		{"explicit", Pagination{Page: 3, PageSize: 20}, 3, 20, 40},
		{"negative page", Pagination{Page: -1, PageSize: 10}, 1, 10, 0},
		{"oversized", Pagination{Page: 2, PageSize: 9999}, 2, MaxPageSize, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, n.Page)
			assert.Equal(t, tt.wantSize, n.PageSize)
			assert.Equal(t, tt.wantOffset, tt.in.Offset())
		})
	}
}
