package deployment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelSet(t *testing.T) {
	t.Parallel()

	s := NewLabelSet("proxy", "beta")
	s.Add("alpha", "proxy")

	assert.True(t, s.Contains("proxy"))
	assert.False(t, s.Contains("implementation"))
	assert.Equal(t, []string{"alpha", "beta", "proxy"}, s.List())
	assert.Equal(t, "alpha beta proxy", s.String())
	assert.True(t, s.Equal(NewLabelSet("beta", "alpha", "proxy")))
	assert.False(t, s.Equal(NewLabelSet("proxy")))
	assert.True(t, LabelSet(nil).Equal(NewLabelSet()))
	assert.Empty(t, LabelSet(nil).String())
}

func TestLabelSet_JSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(NewLabelSet("proxy", "implementation"))
	require.NoError(t, err)
	assert.JSONEq(t, `["implementation","proxy"]`, string(b))

	var got LabelSet
	require.NoError(t, json.Unmarshal([]byte(`["b","a","b"]`), &got))
	assert.Equal(t, NewLabelSet("a", "b"), got)

	require.Error(t, json.Unmarshal([]byte(`{"a":1}`), &got))
}
