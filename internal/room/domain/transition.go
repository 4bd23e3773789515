package domain

type Event string

const (
	EventCheckIn          Event = "check_in"
	EventCheckInReserved  Event = "check_in_reserved"
	EventCheckOut         Event = "check_out"
	EventTransferOut      Event = "transfer_out"
	EventMergeOut         Event = "merge_out"
	EventCancelAssignment Event = "cancel_assignment"
	EventMarkClean        Event = "mark_clean"
	EventHold             Event = "hold"
	EventRelease          Event = "release"
	EventOverride         Event = "override"
)

type edge struct {
	from Status
	to   Status
}

var transitions = map[Event]edge{
	EventCheckIn:          {from: StatusAvailable, to: StatusOccupied},
	EventCheckInReserved:  {from: StatusReserved, to: StatusOccupied},
	EventCheckOut:         {from: StatusOccupied, to: StatusCleaning},
	EventTransferOut:      {from: StatusOccupied, to: StatusCleaning},
	EventMergeOut:         {from: StatusOccupied, to: StatusCleaning},
	EventCancelAssignment: {from: StatusOccupied, to: StatusAvailable},
	EventMarkClean:        {from: StatusCleaning, to: StatusAvailable},
	EventHold:             {from: StatusAvailable, to: StatusReserved},
	EventRelease:          {from: StatusReserved, to: StatusAvailable},
}

// Next returns the status a room in from moves to on event. Override is
// not resolved here since its target is chosen by the caller.
func Next(from Status, event Event) (Status, error) {
	e, ok := transitions[event]
	if !ok {
		return "", ErrInvalidEvent
	}
	if e.from != from {
		if event == EventCheckIn || event == EventCheckInReserved {
			return "", ErrRoomUnavailable
		}
		return "", ErrInvalidTransition
	}
	return e.to, nil
}

// RequiresActive reports whether event places a new occupant or hold on the
// room, which inactive rooms refuse.
func RequiresActive(event Event) bool {
	switch event {
	case EventCheckIn, EventCheckInReserved, EventHold:
		return true
	default:
		return false
	}
}
