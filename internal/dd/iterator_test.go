package dd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIteratorOrders(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3}, Forward(4))
	assert.Equal(t, []int{3, 2, 1, 0}, Backward(4))
	assert.Nil(t, Skip(4))
	assert.Empty(t, Forward(0))
	assert.Empty(t, Backward(0))
}

func TestParseIterator(t *testing.T) {
	for _, name := range []string{"forward", "backward", "skip"} {
		it, err := ParseIterator(name)
		require.NoError(t, err, name)
		require.NotNil(t, it, name)
	}

	_, err := ParseIterator("random")
	assert.Error(t, err)
}
