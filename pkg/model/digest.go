package model

import (
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
)

// DigestLength is the length of a Digest in bytes.
const DigestLength = blake2b.Size256

type (
	// Round is a consensus round.
	Round uint64

	// Epoch is the index of a validator-set era.
	Epoch uint64

	// AuthorityIndex is the index of a block proposer within the committee.
	AuthorityIndex uint32

	// SequenceNumber is the version of an object.
	SequenceNumber uint64
)

// Bytes returns the serialized form of the SequenceNumber.
func (s SequenceNumber) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()
	if err := stream.Write(byteBuffer, s); err != nil {
		return nil, ierrors.Wrap(err, "failed to write sequence number")
	}

	return byteBuffer.Bytes()
}

// Digest is a blake2b-256 hash.
type Digest [DigestLength]byte

type (
	TransactionDigest = Digest
	EffectsDigest     = Digest
	ObjectDigest      = Digest
	BlockDigest       = Digest
)

// EmptyDigest is the zero value of a Digest.
var EmptyDigest Digest

// NewDigest returns the blake2b-256 hash of the given data.
func NewDigest(data []byte) Digest {
	return blake2b.Sum256(data)
}

// DigestFromBytes parses a Digest from the given bytes and returns the number of consumed bytes.
func DigestFromBytes(bytes []byte) (digest Digest, consumedBytes int, err error) {
	if len(bytes) < DigestLength {
		return digest, 0, ierrors.Errorf("not enough bytes to read digest: expected %d, got %d", DigestLength, len(bytes))
	}

	copy(digest[:], bytes)

	return digest, DigestLength, nil
}

// DigestFromBase58 parses a Digest from its base58 representation.
func DigestFromBase58(encoded string) (digest Digest, err error) {
	decoded, err := base58.Decode(encoded)
	if err != nil {
		return digest, ierrors.Wrap(err, "failed to decode base58 digest")
	}

	if len(decoded) != DigestLength {
		return digest, ierrors.Errorf("invalid digest length: expected %d, got %d", DigestLength, len(decoded))
	}

	copy(digest[:], decoded)

	return digest, nil
}

func (d Digest) Bytes() ([]byte, error) {
	return d[:], nil
}

func (d Digest) Empty() bool {
	return d == EmptyDigest
}

func (d Digest) String() string {
	return base58.Encode(d[:])
}

// ObjectID is the unique identifier of an on-chain object.
type ObjectID [DigestLength]byte

// Address identifies the sender or owner of objects.
type Address = ObjectID

// ObjectIDFromData derives an ObjectID from the given seed data.
func ObjectIDFromData(data []byte) ObjectID {
	return blake2b.Sum256(data)
}

func (o ObjectID) Bytes() ([]byte, error) {
	return o[:], nil
}

func (o ObjectID) String() string {
	return base58.Encode(o[:])
}
