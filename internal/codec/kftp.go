package codec

// KftpHeaderSize is the encoded size of a KftpHeader.
const KftpHeaderSize = 4

// KftpHeader is carried at the start of the first RUDP payload of a file
// transfer; FileSize is the total number of file bytes to follow.
type KftpHeader struct {
	FileSize int32
}

// EncodeKftpHeader serializes h into buf, returning the number of bytes
// written.
func EncodeKftpHeader(h KftpHeader, buf []byte) (int, error) {
	if len(buf) < KftpHeaderSize {
		return 0, ErrBufferTooSmall
	}
	if err := EncodeInt32(h.FileSize, buf[0:4]); err != nil {
		return 0, err
	}
	return KftpHeaderSize, nil
}

// DecodeKftpHeader parses a KftpHeader from the front of buf, returning the
// number of bytes consumed.
func DecodeKftpHeader(buf []byte) (KftpHeader, int, error) {
	size, err := DecodeInt32(buf)
	if err != nil {
		return KftpHeader{}, 0, err
	}
	return KftpHeader{FileSize: size}, KftpHeaderSize, nil
}
