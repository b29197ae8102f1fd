package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/ierrors"
)

func TestCache_GetOrCreate(t *testing.T) {
	c := NewCache(1024 * 1024)

	created := 0
	createValue := func() ([]byte, error) {
		created++

		return []byte("response"), nil
	}

	value, err := c.GetOrCreate([]byte("key"), createValue)
	require.NoError(t, err)
	require.Equal(t, []byte("response"), value)

	value, err = c.GetOrCreate([]byte("key"), createValue)
	require.NoError(t, err)
	require.Equal(t, []byte("response"), value)
	require.Equal(t, 1, created)
	require.Equal(t, uint64(1), c.Size())

	failure := ierrors.New("failure")
	_, err = c.GetOrCreate([]byte("other"), func() ([]byte, error) { return nil, failure })
	require.ErrorIs(t, err, failure)
	require.Nil(t, c.Get([]byte("other")))

	c.Reset()
	require.Zero(t, c.Size())
	require.Nil(t, c.Get([]byte("key")))
}
