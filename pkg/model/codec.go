package model

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
)

// maxCollectionLength bounds the element count of decoded collections.
const maxCollectionLength = 1 << 20

func writeCollection(byteBuffer *stream.ByteBuffer, count int, writeElement func(i int) error) error {
	if err := stream.Write(byteBuffer, uint32(count)); err != nil {
		return ierrors.Wrap(err, "failed to write collection length")
	}

	for i := 0; i < count; i++ {
		if err := writeElement(i); err != nil {
			return ierrors.Wrapf(err, "failed to write element %d", i)
		}
	}

	return nil
}

func readCollection(reader *stream.ByteReader, readElement func(i int) error) (count int, err error) {
	length, err := stream.Read[uint32](reader)
	if err != nil {
		return 0, ierrors.Wrap(err, "failed to read collection length")
	}

	if length > maxCollectionLength {
		return 0, ierrors.Errorf("collection length %d exceeds maximum of %d", length, maxCollectionLength)
	}

	for i := 0; i < int(length); i++ {
		if err = readElement(i); err != nil {
			return i, ierrors.Wrapf(err, "failed to read element %d", i)
		}
	}

	return int(length), nil
}

func writeBytes(byteBuffer *stream.ByteBuffer, data []byte) error {
	return stream.WriteBytesWithSize(byteBuffer, data, serializer.SeriLengthPrefixTypeAsUint32)
}

func readBytes(reader *stream.ByteReader) ([]byte, error) {
	return stream.ReadBytesWithSize(reader, serializer.SeriLengthPrefixTypeAsUint32)
}

// fromBytesExact decodes data with the given parser and fails if it does not consume all bytes.
func fromBytesExact[T any](data []byte, parser func([]byte) (T, int, error)) (result T, err error) {
	result, consumedBytes, err := parser(data)
	if err != nil {
		return result, err
	}

	if consumedBytes != len(data) {
		return result, ierrors.Errorf("unexpected trailing bytes: consumed %d of %d", consumedBytes, len(data))
	}

	return result, nil
}
