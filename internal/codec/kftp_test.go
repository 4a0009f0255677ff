package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKftpHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, KftpHeaderSize)
	n, err := EncodeKftpHeader(KftpHeader{FileSize: 5 * MaxDataSize}, buf)
	require.NoError(t, err)
	assert.Equal(t, KftpHeaderSize, n)

	got, consumed, err := DecodeKftpHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, KftpHeaderSize, consumed)
	assert.Equal(t, int32(5*MaxDataSize), got.FileSize)
}

func TestDecodeKftpHeaderTruncated(t *testing.T) {
	_, _, err := DecodeKftpHeader(make([]byte, 3))
	assert.ErrorIs(t, err, ErrTruncated)
}
