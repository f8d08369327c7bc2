package model

// EventKind describes which mutation produced a change event.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event is an ephemeral notification about one completed mutation.
// It is never persisted.
type Event struct {
	Kind    EventKind
	OwnerID string
	Task    *Task // created, updated
	TaskID  int64 // deleted
}

// Frame is what a connected client receives.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func TaskCreated(t Task) Event {
	return Event{Kind: EventCreated, OwnerID: t.OwnerID, Task: &t, TaskID: t.ID}
}

func TaskUpdated(t Task) Event {
	return Event{Kind: EventUpdated, OwnerID: t.OwnerID, Task: &t, TaskID: t.ID}
}

func TaskDeleted(ownerID string, id int64) Event {
	return Event{Kind: EventDeleted, OwnerID: ownerID, TaskID: id}
}

// Frame converts the event into its wire form:
// taskCreated(Task), taskUpdated(Task), taskDeleted(id).
func (e Event) Frame() Frame {
	switch e.Kind {
	case EventCreated:
		return Frame{Event: "taskCreated", Data: e.Task}
	case EventUpdated:
		return Frame{Event: "taskUpdated", Data: e.Task}
	default:
		return Frame{Event: "taskDeleted", Data: e.TaskID}
	}
}
