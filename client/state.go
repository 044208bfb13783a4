package client

// Phase is the lifecycle position of a session's current request.
type Phase int

const (
	Idle Phase = iota
	Loading
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of a Session.
//
// Content is set only in Succeeded, Message only in Failed. Generation
// identifies the submission the state belongs to and increases by one for
// every accepted submission.
type State struct {
	Phase      Phase
	Content    string
	Message    string
	Generation uint64
}
