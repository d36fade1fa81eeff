package engine

import (
	"fmt"

	"github.com/the-line/internal/notify"
)

// Status is the outcome of a queue operation.
type Status string

const (
	StatusJoined        Status = "joined"
	StatusAlreadyQueued Status = "already_queued"
	StatusLeft          Status = "left"
	StatusNotQueued     Status = "not_queued"
	StatusPosition      Status = "position"
	StatusNext          Status = "next"
	StatusEmpty         Status = "empty"
	StatusCleared       Status = "cleared"
	StatusError         Status = "error"
)

const (
	TextAlreadyQueued = "You are already in this queue!"
	TextNotQueued     = "You are not in this queue!"
	TextEmpty         = "Queue is empty."
	TextCleared       = "Queue cleared."
	TextError         = "An error occurred, please try again."
)

// Result is what the front-end shows for a queue operation.
type Result struct {
	Status   Status `json:"status"`
	Text     string `json:"text"`
	Name     string `json:"name,omitempty"`
	Position int    `json:"position,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// AdvanceResult adds the served member and the members that were notified.
type AdvanceResult struct {
	Result
	Served   *Member       `json:"served,omitempty"`
	Affected []int64       `json:"affected"`
	Report   notify.Report `json:"report"`
}

func errorResult() Result {
	return Result{Status: StatusError, Text: TextError}
}

func joinedResult(name string, position int) Result {
	return Result{
		Status:   StatusJoined,
		Text:     fmt.Sprintf("%s, you have joined the queue. Your number: %d", name, position),
		Name:     name,
		Position: position,
	}
}

func alreadyQueuedResult(position int) Result {
	return Result{
		Status:   StatusAlreadyQueued,
		Text:     fmt.Sprintf("%s Your number: %d", TextAlreadyQueued, position),
		Position: position,
	}
}

func leftResult(name string) Result {
	return Result{Status: StatusLeft, Text: fmt.Sprintf("%s, you have left the queue.", name), Name: name}
}

func positionResult(name string, position int) Result {
	return Result{Status: StatusPosition, Text: notify.PositionText(name, position), Name: name, Position: position}
}

func nextResult(name string) Result {
	return Result{Status: StatusNext, Text: "Next: " + name, Name: name, Position: 1}
}

func emptyResult() Result {
	return Result{Status: StatusEmpty, Text: TextEmpty}
}

func actionJoin(orgID int64) string  { return fmt.Sprintf("join_queue_org_%d", orgID) }
func actionLeave(orgID int64) string { return fmt.Sprintf("leave_queue_org_%d", orgID) }
func actionNext(orgID int64) string  { return fmt.Sprintf("next_in_queue_org_%d", orgID) }
