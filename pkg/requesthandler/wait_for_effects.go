package requesthandler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
)

// ErrObjectNotFound is returned if an object that is referenced by executed effects is missing.
var ErrObjectNotFound = ierrors.New("object not found")

type effectsResult struct {
	effects *model.TransactionEffects
	err     error
}

// WaitForEffects waits until the requested transaction was executed and returns its effects together with the
// requested extras. If consensus rejected the transaction, the position expired or the wait timed out, a
// *rejections.RejectedByConsensusError is returned instead.
func (r *RequestHandler) WaitForEffects(ctx context.Context, rawRequest *model.RawWaitForEffectsRequest) (*model.RawWaitForEffectsResponse, error) {
	request, err := rawRequest.Decode()
	if err != nil {
		return nil, err
	}

	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()

	executed := make(chan effectsResult, 1)
	go func() {
		executedEffects, readErr := r.objectStore.NotifyReadExecutedEffects(waitCtx, []model.TransactionDigest{request.TransactionDigest})
		if readErr != nil {
			executed <- effectsResult{err: readErr}

			return
		}

		executed <- effectsResult{effects: executedEffects[0]}
	}()

	rejected := make(chan error, 1)
	go func() {
		rejected <- r.rejectionTracker.WaitForRejection(waitCtx, request.TransactionPosition, r.optsWaitForEffectsTimeout)
	}()

	select {
	case result := <-executed:
		if result.err != nil {
			return nil, ierrors.Wrapf(result.err, "failed to wait for effects of transaction %s", request.TransactionDigest)
		}

		return r.cachedResponse(ctx, request, result.effects)
	case err = <-rejected:
		return nil, err
	}
}

// cachedResponse returns the serialized response of an executed transaction.
func (r *RequestHandler) cachedResponse(ctx context.Context, request *model.WaitForEffectsRequest, effects *model.TransactionEffects) (*model.RawWaitForEffectsResponse, error) {
	responseBytes, err := r.responseCache.GetOrCreate(responseCacheKey(request), func() ([]byte, error) {
		response, err := r.assembleResponse(ctx, request, effects)
		if err != nil {
			return nil, err
		}

		return response.Bytes()
	})
	if err != nil {
		return nil, err
	}

	return model.RawWaitForEffectsResponseFromBytes(responseBytes)
}

// assembleResponse loads the requested extras of an executed transaction.
func (r *RequestHandler) assembleResponse(ctx context.Context, request *model.WaitForEffectsRequest, effects *model.TransactionEffects) (*model.RawWaitForEffectsResponse, error) {
	response := &model.WaitForEffectsResponse{
		Effects: effects,
	}

	if request.IncludeEvents {
		events, exists, err := r.objectStore.TransactionEvents(request.TransactionDigest)
		if err != nil {
			return nil, ierrors.Wrapf(err, "failed to load events of transaction %s", request.TransactionDigest)
		}

		response.Events = lo.Cond(exists, events, &model.TransactionEvents{})
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if request.IncludeInputObjects {
		group.Go(func() (err error) {
			response.InputObjects, err = r.loadObjects(groupCtx, effects.Inputs)

			return err
		})
	}

	if request.IncludeOutputObjects {
		group.Go(func() (err error) {
			response.OutputObjects, err = r.loadObjects(groupCtx, effects.Outputs)

			return err
		})
	}

	if err := group.Wait(); err != nil {
		return nil, ierrors.Wrapf(err, "failed to load objects of transaction %s", request.TransactionDigest)
	}

	return model.NewRawWaitForEffectsResponse(response)
}

func (r *RequestHandler) loadObjects(ctx context.Context, refs []model.ObjectRef) ([]*model.Object, error) {
	objects := make([]*model.Object, 0, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		object, exists, err := r.objectStore.ObjectByKey(model.VersionedObjectKey(ref.ID, ref.Version))
		if err != nil {
			return nil, err
		}

		if !exists {
			return nil, ierrors.Wrapf(ErrObjectNotFound, "%s", ref)
		}

		objects = append(objects, object)
	}

	return objects, nil
}

func responseCacheKey(request *model.WaitForEffectsRequest) []byte {
	var flags byte
	for i, included := range []bool{request.IncludeEvents, request.IncludeInputObjects, request.IncludeOutputObjects} {
		if included {
			flags |= 1 << i
		}
	}

	return append(lo.PanicOnErr(request.TransactionDigest.Bytes()), flags)
}
