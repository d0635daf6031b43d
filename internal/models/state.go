package models

// RelationshipState classifies an ordered pair of users from the first user's
// perspective, derived from the three locally-cached lists.
type RelationshipState string

const (
	NotFriends RelationshipState = "notFriends"
	Sent       RelationshipState = "sent"
	Received   RelationshipState = "received"
	Friends    RelationshipState = "friends"
)

// UserState tracks whether a session currently has an authenticated identity.
type UserState string

const (
	LoggedOut UserState = "loggedOut"
	LoggedIn  UserState = "loggedIn"
)

// ProcessKind is the request/response channel consumed by the presentation
// layer for spinners and error banners.
type ProcessKind string

const (
	ProcessInitialized ProcessKind = "initialized"
	ProcessLoading     ProcessKind = "loading"
	ProcessSuccess     ProcessKind = "success"
	ProcessError       ProcessKind = "error"
)

// ProcessState is sticky: after a terminal Success or Error the caller must
// reset it to Initialized explicitly, it never clears itself.
type ProcessState struct {
	Kind    ProcessKind `json:"kind"`
	Message string      `json:"message,omitempty"`
}

func Initialized() ProcessState          { return ProcessState{Kind: ProcessInitialized} }
func Loading() ProcessState              { return ProcessState{Kind: ProcessLoading} }
func Success() ProcessState              { return ProcessState{Kind: ProcessSuccess} }
func ProcessErr(msg string) ProcessState { return ProcessState{Kind: ProcessError, Message: msg} }
