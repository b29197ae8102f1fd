package model

import (
	"bytes"
	"cmp"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
	"github.com/iotaledger/hive.go/stringify"
)

// BlockRef identifies a consensus block.
type BlockRef struct {
	Round  Round
	Author AuthorityIndex
	Digest BlockDigest
}

// NewBlockRef creates a new BlockRef.
func NewBlockRef(round Round, author AuthorityIndex, digest BlockDigest) BlockRef {
	return BlockRef{
		Round:  round,
		Author: author,
		Digest: digest,
	}
}

// Compare orders BlockRefs by round, author and digest.
func (b BlockRef) Compare(other BlockRef) int {
	if result := cmp.Compare(b.Round, other.Round); result != 0 {
		return result
	}

	if result := cmp.Compare(b.Author, other.Author); result != 0 {
		return result
	}

	return bytes.Compare(b.Digest[:], other.Digest[:])
}

func (b BlockRef) String() string {
	return stringify.Struct("BlockRef",
		stringify.NewStructField("Round", uint64(b.Round)),
		stringify.NewStructField("Author", uint32(b.Author)),
		stringify.NewStructField("Digest", b.Digest.String()),
	)
}

// TransactionPosition is the location of a transaction in the consensus output. It is comparable and can be used as a
// map key.
type TransactionPosition struct {
	BlockRef         BlockRef
	TransactionIndex uint32
}

// NewTransactionPosition creates a new TransactionPosition.
func NewTransactionPosition(blockRef BlockRef, transactionIndex uint32) TransactionPosition {
	return TransactionPosition{
		BlockRef:         blockRef,
		TransactionIndex: transactionIndex,
	}
}

// TransactionPositionFromBytes parses a TransactionPosition and returns the number of consumed bytes.
func TransactionPositionFromBytes(data []byte) (position TransactionPosition, consumedBytes int, err error) {
	reader := stream.NewByteReader(data)

	if position.BlockRef.Round, err = stream.Read[Round](reader); err != nil {
		return position, 0, ierrors.Wrap(err, "failed to read round")
	}
	if position.BlockRef.Author, err = stream.Read[AuthorityIndex](reader); err != nil {
		return position, 0, ierrors.Wrap(err, "failed to read author")
	}
	if position.BlockRef.Digest, err = stream.Read[BlockDigest](reader); err != nil {
		return position, 0, ierrors.Wrap(err, "failed to read block digest")
	}
	if position.TransactionIndex, err = stream.Read[uint32](reader); err != nil {
		return position, 0, ierrors.Wrap(err, "failed to read transaction index")
	}

	return position, reader.BytesRead(), nil
}

// Round returns the round of the block that contains the transaction.
func (t TransactionPosition) Round() Round {
	return t.BlockRef.Round
}

// Compare orders TransactionPositions by their BlockRef and then by their index within the block.
func (t TransactionPosition) Compare(other TransactionPosition) int {
	if result := t.BlockRef.Compare(other.BlockRef); result != 0 {
		return result
	}

	return cmp.Compare(t.TransactionIndex, other.TransactionIndex)
}

func (t TransactionPosition) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()

	if err := stream.Write(byteBuffer, t.BlockRef.Round); err != nil {
		return nil, ierrors.Wrap(err, "failed to write round")
	}
	if err := stream.Write(byteBuffer, t.BlockRef.Author); err != nil {
		return nil, ierrors.Wrap(err, "failed to write author")
	}
	if err := stream.Write(byteBuffer, t.BlockRef.Digest); err != nil {
		return nil, ierrors.Wrap(err, "failed to write block digest")
	}
	if err := stream.Write(byteBuffer, t.TransactionIndex); err != nil {
		return nil, ierrors.Wrap(err, "failed to write transaction index")
	}

	return byteBuffer.Bytes()
}

func (t TransactionPosition) String() string {
	return stringify.Struct("TransactionPosition",
		stringify.NewStructField("BlockRef", t.BlockRef.String()),
		stringify.NewStructField("TransactionIndex", t.TransactionIndex),
	)
}
