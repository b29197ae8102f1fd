package model

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
	"github.com/iotaledger/hive.go/stringify"
)

// ObjectRef references a specific version of an object.
type ObjectRef struct {
	ID      ObjectID
	Version SequenceNumber
	Digest  ObjectDigest
}

func (o ObjectRef) String() string {
	return stringify.Struct("ObjectRef",
		stringify.NewStructField("ID", o.ID.String()),
		stringify.NewStructField("Version", uint64(o.Version)),
		stringify.NewStructField("Digest", o.Digest.String()),
	)
}

// InputObjectKindType is the type of an input that is declared by a transaction.
type InputObjectKindType uint8

const (
	// InputObjectKindOwned is an immutable or address owned object referenced at a fixed version.
	InputObjectKindOwned InputObjectKindType = iota

	// InputObjectKindShared is a shared object whose version is assigned by consensus.
	InputObjectKindShared

	// InputObjectKindPackage is a published package.
	InputObjectKindPackage
)

func (t InputObjectKindType) String() string {
	switch t {
	case InputObjectKindOwned:
		return "Owned"
	case InputObjectKindShared:
		return "Shared"
	case InputObjectKindPackage:
		return "Package"
	default:
		return "Unknown"
	}
}

// InputObjectKind is an input declared by a transaction.
type InputObjectKind struct {
	Type InputObjectKindType

	// Ref is the full reference for owned inputs. Shared inputs carry the initial shared version in Ref.Version and
	// packages only carry the ID.
	Ref ObjectRef

	// Mutable is only meaningful for shared inputs.
	Mutable bool
}

// OwnedInput creates an input for an owned or immutable object.
func OwnedInput(ref ObjectRef) InputObjectKind {
	return InputObjectKind{Type: InputObjectKindOwned, Ref: ref}
}

// SharedInput creates an input for a shared object.
func SharedInput(id ObjectID, initialSharedVersion SequenceNumber, mutable bool) InputObjectKind {
	return InputObjectKind{Type: InputObjectKindShared, Ref: ObjectRef{ID: id, Version: initialSharedVersion}, Mutable: mutable}
}

// PackageInput creates an input for a package.
func PackageInput(id ObjectID) InputObjectKind {
	return InputObjectKind{Type: InputObjectKindPackage, Ref: ObjectRef{ID: id}}
}

// ObjectID returns the ID of the referenced object.
func (i InputObjectKind) ObjectID() ObjectID {
	return i.Ref.ID
}

func (i InputObjectKind) String() string {
	return stringify.Struct("InputObjectKind",
		stringify.NewStructField("Type", i.Type.String()),
		stringify.NewStructField("Ref", i.Ref.String()),
		stringify.NewStructField("Mutable", i.Mutable),
	)
}

// InputKey is a resolved input dependency of a transaction: either a concrete object version or a package.
type InputKey struct {
	ID        ObjectID
	Version   SequenceNumber
	IsPackage bool
}

// VersionedObjectKey returns the InputKey of the given object version.
func VersionedObjectKey(id ObjectID, version SequenceNumber) InputKey {
	return InputKey{ID: id, Version: version}
}

// PackageKey returns the InputKey of the given package.
func PackageKey(id ObjectID) InputKey {
	return InputKey{ID: id, IsPackage: true}
}

// InputKeyFromBytes parses an InputKey and returns the number of consumed bytes.
func InputKeyFromBytes(data []byte) (key InputKey, consumedBytes int, err error) {
	reader := stream.NewByteReader(data)

	if key.IsPackage, err = stream.Read[bool](reader); err != nil {
		return key, 0, ierrors.Wrap(err, "failed to read package flag")
	}
	if key.ID, err = stream.Read[ObjectID](reader); err != nil {
		return key, 0, ierrors.Wrap(err, "failed to read object id")
	}
	if key.Version, err = stream.Read[SequenceNumber](reader); err != nil {
		return key, 0, ierrors.Wrap(err, "failed to read version")
	}

	return key, reader.BytesRead(), nil
}

func (i InputKey) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()

	if err := stream.Write(byteBuffer, i.IsPackage); err != nil {
		return nil, ierrors.Wrap(err, "failed to write package flag")
	}
	if err := stream.Write(byteBuffer, i.ID); err != nil {
		return nil, ierrors.Wrap(err, "failed to write object id")
	}
	if err := stream.Write(byteBuffer, i.Version); err != nil {
		return nil, ierrors.Wrap(err, "failed to write version")
	}

	return byteBuffer.Bytes()
}

func (i InputKey) String() string {
	if i.IsPackage {
		return stringify.Struct("InputKey", stringify.NewStructField("Package", i.ID.String()))
	}

	return stringify.Struct("InputKey",
		stringify.NewStructField("ID", i.ID.String()),
		stringify.NewStructField("Version", uint64(i.Version)),
	)
}
