package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullableVersion_Matches(t *testing.T) {
	tests := []struct {
		name     string
		stored   NullableVersion
		expected ExpectedVersion
		want     bool
	}{
		{"blind write on versioned row", VersionOf(3), AnyVersion(), true},
		{"blind write on legacy row", NoVersion(), AnyVersion(), true},
		{"matching version", VersionOf(3), Expect(3), true},
		{"stale version", VersionOf(4), Expect(3), false},
		{"legacy row matches any expectation", NoVersion(), Expect(42), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.stored.Matches(tc.expected))
		})
	}
}

func TestNullableVersion_Next(t *testing.T) {
	assert.Equal(t, 1, NoVersion().Next())
	assert.Equal(t, 8, VersionOf(7).Next())
}

func TestNullableVersion_Scan(t *testing.T) {
	var v NullableVersion
	require.NoError(t, v.Scan(int64(5)))
	assert.Equal(t, VersionOf(5), v)

	require.NoError(t, v.Scan(nil))
	assert.True(t, v.IsNull())
	assert.Nil(t, v.Ptr())

	require.NoError(t, v.Scan([]byte("12")))
	n, ok := v.Get()
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	assert.Error(t, v.Scan("seven"))
}

func TestNullableVersion_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A NullableVersion `json:"a"`
		B NullableVersion `json:"b"`
	}{A: VersionOf(2), B: NoVersion()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2,"b":null}`, string(out))

	var in struct {
		A NullableVersion `json:"a"`
		B NullableVersion `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":9,"b":null}`), &in))
	assert.Equal(t, VersionOf(9), in.A)
	assert.True(t, in.B.IsNull())
}

func TestExpectFromPtr(t *testing.T) {
	assert.False(t, ExpectFromPtr(nil).IsSet())

	v := 3
	e := ExpectFromPtr(&v)
	got, ok := e.Get()
	assert.True(t, ok)
	assert.Equal(t, 3, got)
}
