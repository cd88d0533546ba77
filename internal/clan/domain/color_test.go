package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    RGB
		wantErr bool
	}{
		{"with hash", "#FF8000", RGB{255, 128, 0}, false},
		{"without hash", "ff8000", RGB{255, 128, 0}, false},
		{"mixed case", "#aBcDeF", RGB{0xAB, 0xCD, 0xEF}, false},
		{"surrounding space", "  #000000 ", RGB{}, false},
		{"too short", "#FFF", RGB{}, true},
		{"too long", "#FFFFFFF", RGB{}, true},
		{"not hex", "#GG0000", RGB{}, true},
		{"empty", "", RGB{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeHex(t *testing.T) {
	got, err := NormalizeHex("ff00aa")
	require.NoError(t, err)
	require.Equal(t, "#FF00AA", got)
}

func TestRGB_Int(t *testing.T) {
	require.Equal(t, 0x5865F2, RGB{0x58, 0x65, 0xF2}.Int())
}

func TestDistance_Known(t *testing.T) {
	require.InDelta(t, 0, Distance(RGB{10, 20, 30}, RGB{10, 20, 30}), 1e-9)
	require.InDelta(t, 441.67, Distance(RGB{0, 0, 0}, RGB{255, 255, 255}), 0.01)
	require.InDelta(t, 5, Distance(RGB{0, 0, 0}, RGB{3, 4, 0}), 1e-9)
}

func TestTooSimilar_Threshold(t *testing.T) {
	base := "#808080"

	// distance 10
	near, err := ParseHex("#8A8080")
	require.NoError(t, err)
	hit, ok := TooSimilar(near, []string{base}, DefaultColorThreshold)
	require.True(t, ok)
	require.Equal(t, base, hit)

	// distance 200
	far := RGB{32 + 120, 32 + 160, 32}
	require.InDelta(t, 200, Distance(far, RGB{32, 32, 32}), 1e-9)
	_, ok = TooSimilar(far, []string{"#202020"}, DefaultColorThreshold)
	require.False(t, ok)

	// exactly at the threshold is allowed
	edge := RGB{32 + 30, 32 + 40, 32}
	_, ok = TooSimilar(edge, []string{"#202020"}, DefaultColorThreshold)
	require.False(t, ok)
}

func TestTooSimilar_IgnoresInvalidExisting(t *testing.T) {
	_, ok := TooSimilar(RGB{1, 2, 3}, []string{"", "not-a-color"}, DefaultColorThreshold)
	require.False(t, ok)
}

func TestDistance_Properties(t *testing.T) {
	genRGB := rapid.Custom(func(t *rapid.T) RGB {
		return RGB{
			R: rapid.Uint8().Draw(t, "r"),
			G: rapid.Uint8().Draw(t, "g"),
			B: rapid.Uint8().Draw(t, "b"),
		}
	})

	rapid.Check(t, func(t *rapid.T) {
		a := genRGB.Draw(t, "a")
		b := genRGB.Draw(t, "b")

		require.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
		require.GreaterOrEqual(t, Distance(a, b), 0.0)
		require.InDelta(t, 0, Distance(a, a), 1e-9)

		parsed, err := ParseHex(a.Hex())
		require.NoError(t, err)
		require.Equal(t, a, parsed)

		_, similar := TooSimilar(a, []string{b.Hex()}, DefaultColorThreshold)
		require.Equal(t, Distance(a, b) < DefaultColorThreshold, similar)
	})
}
