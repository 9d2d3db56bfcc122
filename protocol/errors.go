package protocol

import "github.com/pkg/errors"

var (
	// ErrShutdown is returned by Consume once the node has been shut down.
	ErrShutdown = errors.New("ordo: node is shut down")
	// ErrNoMembers is returned when a node is created with an empty group.
	ErrNoMembers = errors.New("ordo: group membership is empty")
	// ErrNotMember is returned when a node's own ID is missing from the group.
	ErrNotMember = errors.New("ordo: node is not a member of the group")
)
