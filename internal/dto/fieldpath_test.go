package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValuePath(t *testing.T) {
	tests := []struct {
		path     string
		expected []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a.b", []string{"a", "b"}},
		{"a[3]", []string{"a", "[3]"}},
		{"[2].sub", []string{"[2]", "sub"}},
		{"a[1][2].c", []string{"a", "[1]", "[2]", "c"}},
		{"a[1].", []string{"a", "[1]"}},
		{"a.b[10].c.d", []string{"a", "b", "[10]", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParseValuePath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseValuePathFailures(t *testing.T) {
	for _, path := range []string{
		"[oops]",
		"[]",
		"a[1",
		"a[1]x",
		"a[-1]",
		"a..b",
		".a",
		"a.",
		"a[1]..b",
		"a b",
		"a]b",
	} {
		t.Run(path, func(t *testing.T) {
			_, err := ParseValuePath(path)
			require.Error(t, err)
			assert.True(t, IsParseError(err))
		})
	}
}

func TestParseTypePath(t *testing.T) {
	got, err := ParseTypePath("list[].value")
	require.NoError(t, err)
	assert.Equal(t, []string{"list", "[]", "value"}, got)

	got, err = ParseTypePath("[][]")
	require.NoError(t, err)
	assert.Equal(t, []string{"[]", "[]"}, got)

	_, err = ParseTypePath("list[0]")
	assert.True(t, IsParseError(err))
}
