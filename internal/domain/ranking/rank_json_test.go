package ranking

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankJSON(t *testing.T) {
	in := []Rank{{Value: 1, Valid: true}, {}, {Value: 4, Valid: true}}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, "[1,null,4]", string(data))

	var out []Rank
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestRankJSON_Invalid(t *testing.T) {
	var r Rank
	err := r.UnmarshalJSON([]byte(`"first"`))
	require.Error(t, err)
}
