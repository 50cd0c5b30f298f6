package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRoundTrip(t *testing.T) {
	c := &Client{prefix: "giftcard:reserve"}

	key := c.Key(42)
	assert.Equal(t, "giftcard:reserve:42", key)

	id, err := c.CardIDFromKey(key)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestCardIDFromKeyOutsideNamespace(t *testing.T) {
	c := &Client{prefix: "giftcard:reserve"}

	_, err := c.CardIDFromKey("lock:something:42")
	assert.Error(t, err)
}

func TestCardIDFromKeyGarbageID(t *testing.T) {
	c := &Client{prefix: "giftcard:reserve"}

	_, err := c.CardIDFromKey("giftcard:reserve:not-a-number")
	assert.Error(t, err)
}
