package model

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
	"github.com/iotaledger/hive.go/stringify"
)

// ExecutionStatus is the outcome of executing a transaction.
type ExecutionStatus uint8

const (
	ExecutionStatusSuccess ExecutionStatus = iota
	ExecutionStatusFailure
)

// TransactionEffects describe the result of executing a transaction.
type TransactionEffects struct {
	TransactionDigest TransactionDigest
	Status            ExecutionStatus
	ExecutedEpoch     Epoch
	// Inputs are the object versions that were consumed.
	Inputs []ObjectRef
	// Outputs are the object versions that were created or mutated.
	Outputs []ObjectRef
}

// TransactionEffectsFromBytes parses TransactionEffects and returns the number of consumed bytes.
func TransactionEffectsFromBytes(data []byte) (effects *TransactionEffects, consumedBytes int, err error) {
	reader := stream.NewByteReader(data)
	effects = new(TransactionEffects)

	if effects.TransactionDigest, err = stream.Read[TransactionDigest](reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read transaction digest")
	}
	if effects.Status, err = stream.Read[ExecutionStatus](reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read status")
	}
	if effects.ExecutedEpoch, err = stream.Read[Epoch](reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read executed epoch")
	}
	if effects.Inputs, err = readObjectRefs(reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read inputs")
	}
	if effects.Outputs, err = readObjectRefs(reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read outputs")
	}

	return effects, reader.BytesRead(), nil
}

// Digest returns the EffectsDigest of the effects.
func (t *TransactionEffects) Digest() EffectsDigest {
	return NewDigest(lo.PanicOnErr(t.Bytes()))
}

func (t *TransactionEffects) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()

	if err := stream.Write(byteBuffer, t.TransactionDigest); err != nil {
		return nil, ierrors.Wrap(err, "failed to write transaction digest")
	}
	if err := stream.Write(byteBuffer, t.Status); err != nil {
		return nil, ierrors.Wrap(err, "failed to write status")
	}
	if err := stream.Write(byteBuffer, t.ExecutedEpoch); err != nil {
		return nil, ierrors.Wrap(err, "failed to write executed epoch")
	}
	if err := writeObjectRefs(byteBuffer, t.Inputs); err != nil {
		return nil, ierrors.Wrap(err, "failed to write inputs")
	}
	if err := writeObjectRefs(byteBuffer, t.Outputs); err != nil {
		return nil, ierrors.Wrap(err, "failed to write outputs")
	}

	return byteBuffer.Bytes()
}

func (t *TransactionEffects) String() string {
	return stringify.Struct("TransactionEffects",
		stringify.NewStructField("TransactionDigest", t.TransactionDigest.String()),
		stringify.NewStructField("Status", uint8(t.Status)),
		stringify.NewStructField("ExecutedEpoch", uint64(t.ExecutedEpoch)),
	)
}

// TransactionEvents are the events emitted while executing a transaction.
type TransactionEvents struct {
	Events [][]byte
}

// TransactionEventsFromBytes parses TransactionEvents and returns the number of consumed bytes.
func TransactionEventsFromBytes(data []byte) (events *TransactionEvents, consumedBytes int, err error) {
	reader := stream.NewByteReader(data)
	events = new(TransactionEvents)

	if _, err = readCollection(reader, func(int) error {
		event, readErr := readBytes(reader)
		if readErr == nil {
			events.Events = append(events.Events, event)
		}

		return readErr
	}); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read events")
	}

	return events, reader.BytesRead(), nil
}

func (t *TransactionEvents) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()

	if err := writeCollection(byteBuffer, len(t.Events), func(i int) error {
		return writeBytes(byteBuffer, t.Events[i])
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to write events")
	}

	return byteBuffer.Bytes()
}

// Object is a versioned on-chain object.
type Object struct {
	ID       ObjectID
	Version  SequenceNumber
	Owner    Address
	Contents []byte
}

// ObjectFromBytes parses an Object and returns the number of consumed bytes.
func ObjectFromBytes(data []byte) (object *Object, consumedBytes int, err error) {
	reader := stream.NewByteReader(data)
	object = new(Object)

	if object.ID, err = stream.Read[ObjectID](reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read object id")
	}
	if object.Version, err = stream.Read[SequenceNumber](reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read version")
	}
	if object.Owner, err = stream.Read[Address](reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read owner")
	}
	if object.Contents, err = readBytes(reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read contents")
	}

	return object, reader.BytesRead(), nil
}

// Key returns the InputKey under which the object is stored.
func (o *Object) Key() InputKey {
	return VersionedObjectKey(o.ID, o.Version)
}

// Ref returns the ObjectRef of the object.
func (o *Object) Ref() ObjectRef {
	return ObjectRef{
		ID:      o.ID,
		Version: o.Version,
		Digest:  NewDigest(lo.PanicOnErr(o.Bytes())),
	}
}

func (o *Object) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()

	if err := stream.Write(byteBuffer, o.ID); err != nil {
		return nil, ierrors.Wrap(err, "failed to write object id")
	}
	if err := stream.Write(byteBuffer, o.Version); err != nil {
		return nil, ierrors.Wrap(err, "failed to write version")
	}
	if err := stream.Write(byteBuffer, o.Owner); err != nil {
		return nil, ierrors.Wrap(err, "failed to write owner")
	}
	if err := writeBytes(byteBuffer, o.Contents); err != nil {
		return nil, ierrors.Wrap(err, "failed to write contents")
	}

	return byteBuffer.Bytes()
}

func writeObjectRefs(byteBuffer *stream.ByteBuffer, refs []ObjectRef) error {
	return writeCollection(byteBuffer, len(refs), func(i int) error {
		return writeObjectRef(byteBuffer, refs[i])
	})
}

func readObjectRefs(reader *stream.ByteReader) (refs []ObjectRef, err error) {
	_, err = readCollection(reader, func(int) error {
		ref, readErr := readObjectRef(reader)
		if readErr == nil {
			refs = append(refs, ref)
		}

		return readErr
	})

	return refs, err
}
