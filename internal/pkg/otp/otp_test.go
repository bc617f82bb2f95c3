package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_LengthAndDigits(t *testing.T) {
	for _, n := range []int{1, 4, 6, 10} {
		code, err := Generate(n)
		require.NoError(t, err)
		require.Len(t, code, n)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "non-digit %q in code %q", c, code)
		}
	}
}

func TestGenerate_RejectsNonPositiveLength(t *testing.T) {
	_, err := Generate(0)
	require.Error(t, err)
	_, err = Generate(-3)
	require.Error(t, err)
}

// Over many generations every digit should appear at each position with
// roughly uniform frequency. Loose bounds keep the test deterministic enough
// for CI while still catching a biased source.
func TestGenerate_RoughlyUniform(t *testing.T) {
	const n = 2000
	counts := [6][10]int{}
	for i := 0; i < n; i++ {
		code, err := Generate(6)
		require.NoError(t, err)
		for pos, c := range code {
			counts[pos][c-'0']++
		}
	}
	for pos := range counts {
		for d, c := range counts[pos] {
			// Expected 200 per digit per position; allow a wide band.
			assert.Greater(t, c, 100, "digit %d at position %d underrepresented", d, pos)
			assert.Less(t, c, 350, "digit %d at position %d overrepresented", d, pos)
		}
	}
}
