package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 1m30s ")))
	assert.Equal(t, 90*time.Second, d.Std())

	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(b))

	require.NoError(t, d.UnmarshalText(nil))
	assert.Zero(t, d.Std())

	assert.Error(t, d.UnmarshalText([]byte("soon")))
	assert.Error(t, d.UnmarshalText([]byte("-1s")))
}
