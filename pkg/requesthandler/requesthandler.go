package requesthandler

import (
	"time"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections"
	"github.com/iotaledger/consensus-executor/pkg/requesthandler/cache"
	"github.com/iotaledger/consensus-executor/pkg/storage/objectstore"
	"github.com/iotaledger/hive.go/runtime/options"
)

// RequestHandler contains the logic to handle wait-for-effects requests and the consensus signals they depend on.
type RequestHandler struct {
	// rejectionTracker resolves the requests of transactions that were rejected by consensus.
	rejectionTracker rejections.Tracker

	// objectStore provides the effects, events and objects of executed transactions.
	objectStore *objectstore.Store

	// responseCache contains the serialized responses of executed transactions.
	responseCache *cache.Cache

	optsWaitForEffectsTimeout time.Duration
	optsResponseCacheSize     int
}

// New creates a new RequestHandler.
func New(rejectionTracker rejections.Tracker, objectStore *objectstore.Store, opts ...options.Option[RequestHandler]) *RequestHandler {
	return options.Apply(&RequestHandler{
		rejectionTracker:          rejectionTracker,
		objectStore:               objectStore,
		optsWaitForEffectsTimeout: 10 * time.Second,
		optsResponseCacheSize:     32 * 1024 * 1024,
	}, opts, func(r *RequestHandler) {
		r.responseCache = cache.NewCache(r.optsResponseCacheSize)
	})
}

// RejectTransaction forwards a rejection of consensus to the rejection tracker.
func (r *RequestHandler) RejectTransaction(position model.TransactionPosition) {
	r.rejectionTracker.RejectTransaction(position)
}

// UpdateLastCommittedRound forwards a committed round of consensus to the rejection tracker.
func (r *RequestHandler) UpdateLastCommittedRound(round model.Round) {
	r.rejectionTracker.UpdateLastCommittedRound(round)
}

// CachedResponses returns the number of cached responses.
func (r *RequestHandler) CachedResponses() uint64 {
	return r.responseCache.Size()
}

// Shutdown releases the resources of the RequestHandler.
func (r *RequestHandler) Shutdown() {
	r.responseCache.Reset()
}

// WithWaitForEffectsTimeout sets the time after which a wait for effects is resolved as timed out.
func WithWaitForEffectsTimeout(timeout time.Duration) options.Option[RequestHandler] {
	return func(r *RequestHandler) {
		r.optsWaitForEffectsTimeout = timeout
	}
}

// WithResponseCacheSize sets the maximum size of the response cache in bytes.
func WithResponseCacheSize(size int) options.Option[RequestHandler] {
	return func(r *RequestHandler) {
		r.optsResponseCacheSize = size
	}
}
