package appctx

import "fmt"

// Status is the observable state of a Context.
type Status int

const (
	StatusClean Status = iota
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "clean":
		return StatusClean, nil
	case "error":
		return StatusError, nil
	}
	return StatusClean, fmt.Errorf("unknown status %q", s)
}

// Event names the operation that caused a transition.
type Event int

const (
	EventSetInput Event = iota
	EventAddParams
	EventSetData
	EventSetResource
	EventClearData
	EventAddErrors
	EventClearErrors
	EventPatch
	EventMerge
	EventReset
)

var eventNames = [...]string{
	EventSetInput:    "set_input",
	EventAddParams:   "add_params",
	EventSetData:     "set_data",
	EventSetResource: "set_resource",
	EventClearData:   "clear_data",
	EventAddErrors:   "add_errors",
	EventClearErrors: "clear_errors",
	EventPatch:       "patch",
	EventMerge:       "merge",
	EventReset:       "reset",
}

func (e Event) String() string {
	if int(e) >= 0 && int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// target is where an event leads from a given status.
type target int

const (
	// stay keeps the current status; the event cannot change errors.
	stay target = iota
	// route resolves to error when errors are non-empty, clean otherwise.
	route
	toClean
)

var transitions = map[Status]map[Event]target{
	StatusClean: {
		EventSetInput:    route,
		EventAddParams:   stay,
		EventSetData:     stay,
		EventSetResource: stay,
		EventClearData:   stay,
		EventAddErrors:   route,
		EventClearErrors: stay,
		EventPatch:       route,
		EventMerge:       route,
		EventReset:       toClean,
	},
	StatusError: {
		EventSetInput:    route,
		EventAddParams:   stay,
		EventSetData:     stay,
		EventSetResource: stay,
		EventClearData:   stay,
		EventAddErrors:   route,
		EventClearErrors: toClean,
		EventPatch:       route,
		EventMerge:       route,
		EventReset:       toClean,
	},
}

// Transition describes one processed event.
type Transition struct {
	Event Event
	From  Status
	To    Status
}

func next(from Status, ev Event, hasErrors bool) Status {
	switch transitions[from][ev] {
	case route:
		if hasErrors {
			return StatusError
		}
		return StatusClean
	case toClean:
		return StatusClean
	default:
		return from
	}
}
