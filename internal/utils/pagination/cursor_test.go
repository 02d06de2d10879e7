package pagination_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/miahui/internal/utils/pagination"
)

func TestCursorEncodeDecode(t *testing.T) {
	token, err := pagination.Encode(pagination.Cursor{MessageID: "m-1", SentUnix: 1700000000000})
	require.NoError(t, err)

	c, err := pagination.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "m-1", c.MessageID)
	assert.Equal(t, int64(1700000000000), c.SentUnix)
}

func TestDecodeEmptyIsFirstPage(t *testing.T) {
	c, err := pagination.Decode("")
	require.NoError(t, err)
	assert.Equal(t, pagination.Cursor{}, c)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := pagination.Decode("%%%")
	assert.ErrorIs(t, err, pagination.ErrInvalidToken)

	// valid base64 of "{}" carries no message id
	_, err = pagination.Decode("e30=")
	assert.ErrorIs(t, err, pagination.ErrInvalidToken)
}
