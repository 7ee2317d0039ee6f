package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"a@example.com", "b@example.com"}

	value, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a@example.com","b@example.com"]`, value)

	var scanned StringList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, list, scanned)

	var fromNil StringList
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	empty := StringList{}
	value, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)
}

func TestStringListContains(t *testing.T) {
	list := StringList{"DE", "viewer@example.com"}
	assert.True(t, list.Contains("de"))
	assert.True(t, list.Contains("Viewer@Example.COM"))
	assert.False(t, list.Contains("FR"))
	assert.False(t, StringList(nil).Contains("anything"))
}
