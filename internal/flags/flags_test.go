package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{
			name:     "enabled flag",
			registry: New(map[string]bool{FlagNicknameTags: true}),
			flag:     FlagNicknameTags,
			expected: true,
		},
		{
			name:     "disabled flag",
			registry: New(map[string]bool{FlagEventLog: false}),
			flag:     FlagEventLog,
			expected: false,
		},
		{
			name:     "unknown flag returns false",
			registry: New(map[string]bool{FlagNicknameTags: true}),
			flag:     "unknown-flag",
			expected: false,
		},
		{
			name:     "nil registry returns false",
			registry: nil,
			flag:     FlagNicknameTags,
			expected: false,
		},
		{
			name:     "nil flags map returns false",
			registry: New(nil),
			flag:     FlagLeaderPrivilege,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.registry.Enabled(tt.flag))
		})
	}
}

func TestRegistry_All_ReturnsDefensiveCopy(t *testing.T) {
	r := New(map[string]bool{FlagNicknameTags: true})

	copied := r.All()
	copied[FlagNicknameTags] = false
	copied[FlagEventLog] = true

	require.True(t, r.Enabled(FlagNicknameTags))
	require.False(t, r.Enabled(FlagEventLog))
	require.Equal(t, map[string]bool{FlagNicknameTags: true}, r.All())
}

func TestRegistry_All_NilRegistry(t *testing.T) {
	var r *Registry
	require.Equal(t, map[string]bool{}, r.All())
}

func TestWithDefaults(t *testing.T) {
	got := WithDefaults(map[string]bool{FlagNicknameTags: false, "custom": true})

	require.False(t, got[FlagNicknameTags], "configured value wins")
	require.True(t, got[FlagLeaderPrivilege])
	require.False(t, got[FlagEventLog])
	require.True(t, got["custom"])
}

func TestWithDefaults_Nil(t *testing.T) {
	require.Equal(t, Defaults(), WithDefaults(nil))
}
