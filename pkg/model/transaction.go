package model

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
	"github.com/iotaledger/hive.go/stringify"
)

// TransactionKey identifies a transaction inside the per-epoch tables.
type TransactionKey = TransactionDigest

// TransactionData is the signed content of a transaction.
type TransactionData struct {
	Sender    Address
	Inputs    []InputObjectKind
	Receiving []ObjectRef
	GasBudget uint64
	Payload   []byte
}

// TransactionDataFromBytes parses TransactionData and returns the number of consumed bytes.
func TransactionDataFromBytes(data []byte) (transactionData *TransactionData, consumedBytes int, err error) {
	reader := stream.NewByteReader(data)
	transactionData = new(TransactionData)

	if transactionData.Sender, err = stream.Read[Address](reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read sender")
	}

	if _, err = readCollection(reader, func(int) error {
		input, readErr := readInputObjectKind(reader)
		if readErr == nil {
			transactionData.Inputs = append(transactionData.Inputs, input)
		}

		return readErr
	}); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read inputs")
	}

	if _, err = readCollection(reader, func(int) error {
		ref, readErr := readObjectRef(reader)
		if readErr == nil {
			transactionData.Receiving = append(transactionData.Receiving, ref)
		}

		return readErr
	}); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read receiving objects")
	}

	if transactionData.GasBudget, err = stream.Read[uint64](reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read gas budget")
	}
	if transactionData.Payload, err = readBytes(reader); err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read payload")
	}

	return transactionData, reader.BytesRead(), nil
}

// InputObjects returns the declared inputs of the transaction.
func (t *TransactionData) InputObjects() []InputObjectKind {
	return t.Inputs
}

// ReceivingObjects returns the objects the transaction may receive.
func (t *TransactionData) ReceivingObjects() []ObjectRef {
	return t.Receiving
}

// Digest returns the TransactionDigest of the transaction.
func (t *TransactionData) Digest() TransactionDigest {
	return NewDigest(lo.PanicOnErr(t.Bytes()))
}

func (t *TransactionData) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()

	if err := stream.Write(byteBuffer, t.Sender); err != nil {
		return nil, ierrors.Wrap(err, "failed to write sender")
	}
	if err := writeCollection(byteBuffer, len(t.Inputs), func(i int) error {
		return writeInputObjectKind(byteBuffer, t.Inputs[i])
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to write inputs")
	}
	if err := writeCollection(byteBuffer, len(t.Receiving), func(i int) error {
		return writeObjectRef(byteBuffer, t.Receiving[i])
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to write receiving objects")
	}
	if err := stream.Write(byteBuffer, t.GasBudget); err != nil {
		return nil, ierrors.Wrap(err, "failed to write gas budget")
	}
	if err := writeBytes(byteBuffer, t.Payload); err != nil {
		return nil, ierrors.Wrap(err, "failed to write payload")
	}

	return byteBuffer.Bytes()
}

// Certificate is a verified, executable transaction that was certified in the given epoch.
type Certificate struct {
	data   *TransactionData
	epoch  Epoch
	digest TransactionDigest
}

// NewCertificate creates a new Certificate for the given TransactionData.
func NewCertificate(data *TransactionData, epoch Epoch) *Certificate {
	return &Certificate{
		data:   data,
		epoch:  epoch,
		digest: data.Digest(),
	}
}

// TransactionData returns the content of the certified transaction.
func (c *Certificate) TransactionData() *TransactionData {
	return c.data
}

// Epoch returns the epoch in which the transaction was certified.
func (c *Certificate) Epoch() Epoch {
	return c.epoch
}

// Digest returns the TransactionDigest of the certified transaction.
func (c *Certificate) Digest() TransactionDigest {
	return c.digest
}

// Key returns the TransactionKey under which the per-epoch tables refer to the transaction.
func (c *Certificate) Key() TransactionKey {
	return c.digest
}

func (c *Certificate) String() string {
	return stringify.Struct("Certificate",
		stringify.NewStructField("Digest", c.digest.String()),
		stringify.NewStructField("Epoch", uint64(c.epoch)),
	)
}

// VerifiedCertificate is a transaction together with the aggregated signature of the committee that certified it.
type VerifiedCertificate struct {
	data      *TransactionData
	epoch     Epoch
	signature []byte
}

// NewVerifiedCertificate creates a new VerifiedCertificate.
func NewVerifiedCertificate(data *TransactionData, epoch Epoch, signature []byte) *VerifiedCertificate {
	return &VerifiedCertificate{
		data:      data,
		epoch:     epoch,
		signature: signature,
	}
}

// Signature returns the aggregated signature of the certificate.
func (v *VerifiedCertificate) Signature() []byte {
	return v.signature
}

// Executable returns the executable Certificate of the certified transaction.
func (v *VerifiedCertificate) Executable() *Certificate {
	return NewCertificate(v.data, v.epoch)
}

func writeObjectRef(byteBuffer *stream.ByteBuffer, ref ObjectRef) error {
	if err := stream.Write(byteBuffer, ref.ID); err != nil {
		return ierrors.Wrap(err, "failed to write object id")
	}
	if err := stream.Write(byteBuffer, ref.Version); err != nil {
		return ierrors.Wrap(err, "failed to write version")
	}
	if err := stream.Write(byteBuffer, ref.Digest); err != nil {
		return ierrors.Wrap(err, "failed to write object digest")
	}

	return nil
}

func readObjectRef(reader *stream.ByteReader) (ref ObjectRef, err error) {
	if ref.ID, err = stream.Read[ObjectID](reader); err != nil {
		return ref, ierrors.Wrap(err, "failed to read object id")
	}
	if ref.Version, err = stream.Read[SequenceNumber](reader); err != nil {
		return ref, ierrors.Wrap(err, "failed to read version")
	}
	if ref.Digest, err = stream.Read[ObjectDigest](reader); err != nil {
		return ref, ierrors.Wrap(err, "failed to read object digest")
	}

	return ref, nil
}

func writeInputObjectKind(byteBuffer *stream.ByteBuffer, input InputObjectKind) error {
	if err := stream.Write(byteBuffer, input.Type); err != nil {
		return ierrors.Wrap(err, "failed to write input type")
	}
	if err := writeObjectRef(byteBuffer, input.Ref); err != nil {
		return err
	}
	if err := stream.Write(byteBuffer, input.Mutable); err != nil {
		return ierrors.Wrap(err, "failed to write mutable flag")
	}

	return nil
}

func readInputObjectKind(reader *stream.ByteReader) (input InputObjectKind, err error) {
	if input.Type, err = stream.Read[InputObjectKindType](reader); err != nil {
		return input, ierrors.Wrap(err, "failed to read input type")
	}
	if input.Type > InputObjectKindPackage {
		return input, ierrors.Errorf("unknown input type %d", input.Type)
	}
	if input.Ref, err = readObjectRef(reader); err != nil {
		return input, err
	}
	if input.Mutable, err = stream.Read[bool](reader); err != nil {
		return input, ierrors.Wrap(err, "failed to read mutable flag")
	}

	return input, nil
}
