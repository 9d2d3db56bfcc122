package protocol

// Checkpoint names a point in the protocol where a FailCheck hook runs.
type Checkpoint string

const (
	// ReceivePropose runs when a Propose arrives, before the acceptor decides.
	ReceivePropose Checkpoint = "RECEIVEPROPOSE"
	// AfterSendPropose runs once Propose went out to every member.
	AfterSendPropose Checkpoint = "AFTERSENDPROPOSE"
	// AfterBecomingLeader runs once a proposer holds a majority of promises.
	AfterBecomingLeader Checkpoint = "AFTERBECOMINGLEADER"
	// AfterValueAccept runs once Accept went out and a majority acked it.
	AfterValueAccept Checkpoint = "AFTERVALUEACCEPT"
	// AfterSendVote runs after an acceptor sends Promise, Refuse, Ack or Reject.
	AfterSendVote Checkpoint = "AFTERSENDVOTE"
)

// FailCheck is called synchronously at every Checkpoint.
// Test harnesses use it to simulate a crash; it may never return.
type FailCheck func(Checkpoint)

func noFailCheck(Checkpoint) {}
