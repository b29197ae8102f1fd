package rejections

import (
	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/hive.go/runtime/event"
)

// Events represents events happening in the Tracker.
type Events struct {
	// TransactionRejected gets triggered when a position was added to the rejected set.
	TransactionRejected *event.Event1[model.TransactionPosition]

	// RoundsExpired gets triggered with the number of evicted positions when rounds fell out of the window.
	RoundsExpired *event.Event2[model.Round, int]

	// WaitResolved gets triggered whenever a wait for a rejection was resolved.
	WaitResolved *event.Event1[Reason]

	event.Group[Events, *Events]
}

// NewEvents contains the constructor of the Events object (it is generated by a generic factory).
var NewEvents = event.CreateGroupConstructor(func() (newEvents *Events) {
	return &Events{
		TransactionRejected: event.New1[model.TransactionPosition](),
		RoundsExpired:       event.New2[model.Round, int](),
		WaitResolved:        event.New1[Reason](),
	}
})
