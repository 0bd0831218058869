package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molrank/internal/domain/dataset"
	"github.com/turtacn/molrank/pkg/errors"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"min", Min, false},
		{"max", Max, false},
		{"MAX", Max, false},
		{" Min ", Min, false},
		{"", "", true},
		{"ascending", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDirection(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeDirectionInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestParseDirections(t *testing.T) {
	dirs, err := ParseDirections("max,min, MAX")
	require.NoError(t, err)
	assert.Equal(t, []Direction{Max, Min, Max}, dirs)

	_, err = ParseDirections("max,up")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDirectionInvalid))
}

func TestObjectiveSpec(t *testing.T) {
	f, err := dataset.New("a", "b", "c")
	require.NoError(t, err)

	assert.True(t, AllColumns().IsAll())
	assert.True(t, ObjectiveSpec{}.IsAll())
	assert.Equal(t, []string{"a", "b", "c"}, AllColumns().Resolve(f))

	spec := Columns("c", "a")
	assert.False(t, spec.IsAll())
	assert.Equal(t, []string{"c", "a"}, spec.Resolve(f))

	// Columns copies its input.
	names := []string{"a"}
	spec = Columns(names...)
	names[0] = "z"
	assert.Equal(t, []string{"a"}, spec.Resolve(f))
}
