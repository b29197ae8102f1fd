package model

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
)

// ErrMessageDeserialization is returned when any field of a wire message fails to decode.
var ErrMessageDeserialization = ierrors.New("message deserialization error")

// WaitForEffectsRequest asks for the effects of a transaction that was sequenced at the given position.
type WaitForEffectsRequest struct {
	TransactionDigest    TransactionDigest
	TransactionPosition  TransactionPosition
	IncludeEvents        bool
	IncludeInputObjects  bool
	IncludeOutputObjects bool
}

// RawWaitForEffectsRequest is the wire form of a WaitForEffectsRequest. Every field is encoded independently.
type RawWaitForEffectsRequest struct {
	TransactionDigest    []byte
	TransactionPosition  []byte
	IncludeEvents        bool
	IncludeInputObjects  bool
	IncludeOutputObjects bool
}

// NewRawWaitForEffectsRequest encodes the given request into its wire form.
func NewRawWaitForEffectsRequest(request *WaitForEffectsRequest) (*RawWaitForEffectsRequest, error) {
	positionBytes, err := request.TransactionPosition.Bytes()
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to encode transaction position")
	}

	return &RawWaitForEffectsRequest{
		TransactionDigest:    lo.PanicOnErr(request.TransactionDigest.Bytes()),
		TransactionPosition:  positionBytes,
		IncludeEvents:        request.IncludeEvents,
		IncludeInputObjects:  request.IncludeInputObjects,
		IncludeOutputObjects: request.IncludeOutputObjects,
	}, nil
}

// Decode converts the wire form into a WaitForEffectsRequest.
func (r *RawWaitForEffectsRequest) Decode() (*WaitForEffectsRequest, error) {
	transactionDigest, err := fromBytesExact(r.TransactionDigest, DigestFromBytes)
	if err != nil {
		return nil, ierrors.Join(ErrMessageDeserialization, ierrors.Wrap(err, "invalid transaction digest"))
	}

	transactionPosition, err := fromBytesExact(r.TransactionPosition, TransactionPositionFromBytes)
	if err != nil {
		return nil, ierrors.Join(ErrMessageDeserialization, ierrors.Wrap(err, "invalid transaction position"))
	}

	return &WaitForEffectsRequest{
		TransactionDigest:    transactionDigest,
		TransactionPosition:  transactionPosition,
		IncludeEvents:        r.IncludeEvents,
		IncludeInputObjects:  r.IncludeInputObjects,
		IncludeOutputObjects: r.IncludeOutputObjects,
	}, nil
}

// RawWaitForEffectsRequestFromBytes parses the transport framing of a RawWaitForEffectsRequest.
func RawWaitForEffectsRequestFromBytes(data []byte) (request *RawWaitForEffectsRequest, err error) {
	request, err = fromBytesExact(data, func(data []byte) (*RawWaitForEffectsRequest, int, error) {
		reader := stream.NewByteReader(data)
		request := new(RawWaitForEffectsRequest)

		var readErr error
		if request.TransactionDigest, readErr = readBytes(reader); readErr != nil {
			return nil, 0, ierrors.Wrap(readErr, "failed to read transaction digest")
		}
		if request.TransactionPosition, readErr = readBytes(reader); readErr != nil {
			return nil, 0, ierrors.Wrap(readErr, "failed to read transaction position")
		}
		if request.IncludeEvents, readErr = stream.Read[bool](reader); readErr != nil {
			return nil, 0, ierrors.Wrap(readErr, "failed to read include events flag")
		}
		if request.IncludeInputObjects, readErr = stream.Read[bool](reader); readErr != nil {
			return nil, 0, ierrors.Wrap(readErr, "failed to read include input objects flag")
		}
		if request.IncludeOutputObjects, readErr = stream.Read[bool](reader); readErr != nil {
			return nil, 0, ierrors.Wrap(readErr, "failed to read include output objects flag")
		}

		return request, reader.BytesRead(), nil
	})
	if err != nil {
		return nil, ierrors.Join(ErrMessageDeserialization, err)
	}

	return request, nil
}

func (r *RawWaitForEffectsRequest) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()

	if err := writeBytes(byteBuffer, r.TransactionDigest); err != nil {
		return nil, ierrors.Wrap(err, "failed to write transaction digest")
	}
	if err := writeBytes(byteBuffer, r.TransactionPosition); err != nil {
		return nil, ierrors.Wrap(err, "failed to write transaction position")
	}
	for _, flag := range []bool{r.IncludeEvents, r.IncludeInputObjects, r.IncludeOutputObjects} {
		if err := stream.Write(byteBuffer, flag); err != nil {
			return nil, ierrors.Wrap(err, "failed to write inclusion flag")
		}
	}

	return byteBuffer.Bytes()
}

// WaitForEffectsResponse carries the executed effects and the optionally requested extras.
type WaitForEffectsResponse struct {
	Effects *TransactionEffects
	// Events is nil if the events were not requested.
	Events        *TransactionEvents
	InputObjects  []*Object
	OutputObjects []*Object
}

// RawWaitForEffectsResponse is the wire form of a WaitForEffectsResponse. Every field is encoded independently.
type RawWaitForEffectsResponse struct {
	Effects []byte
	// Events is nil if the events are absent.
	Events        []byte
	InputObjects  [][]byte
	OutputObjects [][]byte
}

// NewRawWaitForEffectsResponse encodes the given response into its wire form.
func NewRawWaitForEffectsResponse(response *WaitForEffectsResponse) (raw *RawWaitForEffectsResponse, err error) {
	raw = new(RawWaitForEffectsResponse)

	if raw.Effects, err = response.Effects.Bytes(); err != nil {
		return nil, ierrors.Wrap(err, "failed to encode effects")
	}

	if response.Events != nil {
		if raw.Events, err = response.Events.Bytes(); err != nil {
			return nil, ierrors.Wrap(err, "failed to encode events")
		}
	}

	if raw.InputObjects, err = encodeObjects(response.InputObjects); err != nil {
		return nil, ierrors.Wrap(err, "failed to encode input objects")
	}

	if raw.OutputObjects, err = encodeObjects(response.OutputObjects); err != nil {
		return nil, ierrors.Wrap(err, "failed to encode output objects")
	}

	return raw, nil
}

// Decode converts the wire form into a WaitForEffectsResponse.
func (r *RawWaitForEffectsResponse) Decode() (response *WaitForEffectsResponse, err error) {
	response = new(WaitForEffectsResponse)

	if response.Effects, err = fromBytesExact(r.Effects, TransactionEffectsFromBytes); err != nil {
		return nil, ierrors.Join(ErrMessageDeserialization, ierrors.Wrap(err, "invalid effects"))
	}

	if r.Events != nil {
		if response.Events, err = fromBytesExact(r.Events, TransactionEventsFromBytes); err != nil {
			return nil, ierrors.Join(ErrMessageDeserialization, ierrors.Wrap(err, "invalid events"))
		}
	}

	if response.InputObjects, err = decodeObjects(r.InputObjects); err != nil {
		return nil, ierrors.Join(ErrMessageDeserialization, ierrors.Wrap(err, "invalid input objects"))
	}

	if response.OutputObjects, err = decodeObjects(r.OutputObjects); err != nil {
		return nil, ierrors.Join(ErrMessageDeserialization, ierrors.Wrap(err, "invalid output objects"))
	}

	return response, nil
}

// RawWaitForEffectsResponseFromBytes parses the transport framing of a RawWaitForEffectsResponse.
func RawWaitForEffectsResponseFromBytes(data []byte) (response *RawWaitForEffectsResponse, err error) {
	response, err = fromBytesExact(data, func(data []byte) (*RawWaitForEffectsResponse, int, error) {
		reader := stream.NewByteReader(data)
		response := new(RawWaitForEffectsResponse)

		var readErr error
		if response.Effects, readErr = readBytes(reader); readErr != nil {
			return nil, 0, ierrors.Wrap(readErr, "failed to read effects")
		}

		hasEvents, readErr := stream.Read[bool](reader)
		if readErr != nil {
			return nil, 0, ierrors.Wrap(readErr, "failed to read events flag")
		}
		if hasEvents {
			if response.Events, readErr = readBytes(reader); readErr != nil {
				return nil, 0, ierrors.Wrap(readErr, "failed to read events")
			}
		}

		if response.InputObjects, readErr = readByteSlices(reader); readErr != nil {
			return nil, 0, ierrors.Wrap(readErr, "failed to read input objects")
		}
		if response.OutputObjects, readErr = readByteSlices(reader); readErr != nil {
			return nil, 0, ierrors.Wrap(readErr, "failed to read output objects")
		}

		return response, reader.BytesRead(), nil
	})
	if err != nil {
		return nil, ierrors.Join(ErrMessageDeserialization, err)
	}

	return response, nil
}

func (r *RawWaitForEffectsResponse) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()

	if err := writeBytes(byteBuffer, r.Effects); err != nil {
		return nil, ierrors.Wrap(err, "failed to write effects")
	}

	if err := stream.Write(byteBuffer, r.Events != nil); err != nil {
		return nil, ierrors.Wrap(err, "failed to write events flag")
	}
	if r.Events != nil {
		if err := writeBytes(byteBuffer, r.Events); err != nil {
			return nil, ierrors.Wrap(err, "failed to write events")
		}
	}

	if err := writeByteSlices(byteBuffer, r.InputObjects); err != nil {
		return nil, ierrors.Wrap(err, "failed to write input objects")
	}
	if err := writeByteSlices(byteBuffer, r.OutputObjects); err != nil {
		return nil, ierrors.Wrap(err, "failed to write output objects")
	}

	return byteBuffer.Bytes()
}

func encodeObjects(objects []*Object) ([][]byte, error) {
	encoded := make([][]byte, 0, len(objects))
	for _, object := range objects {
		objectBytes, err := object.Bytes()
		if err != nil {
			return nil, ierrors.Wrapf(err, "failed to encode object %s", object.ID)
		}

		encoded = append(encoded, objectBytes)
	}

	return encoded, nil
}

func decodeObjects(encoded [][]byte) ([]*Object, error) {
	objects := make([]*Object, 0, len(encoded))
	for i, objectBytes := range encoded {
		object, err := fromBytesExact(objectBytes, ObjectFromBytes)
		if err != nil {
			return nil, ierrors.Wrapf(err, "failed to decode object %d", i)
		}

		objects = append(objects, object)
	}

	return objects, nil
}

func writeByteSlices(byteBuffer *stream.ByteBuffer, slices [][]byte) error {
	return writeCollection(byteBuffer, len(slices), func(i int) error {
		return writeBytes(byteBuffer, slices[i])
	})
}

func readByteSlices(reader *stream.ByteReader) ([][]byte, error) {
	slices := make([][]byte, 0)
	if _, err := readCollection(reader, func(int) error {
		slice, err := readBytes(reader)
		if err == nil {
			slices = append(slices, slice)
		}

		return err
	}); err != nil {
		return nil, err
	}

	return slices, nil
}
