package protocol

import (
	"log"
	"os"
	"time"
)

// DefaultQuorumTimeout is how long a proposer waits for a majority of replies in each phase.
const DefaultQuorumTimeout = 5 * time.Second

// Config tunes a Node. The zero value is usable; unset fields get defaults.
type Config struct {
	// QuorumTimeout bounds each wait for promises or acks before retrying with a higher ballot.
	QuorumTimeout time.Duration
	// Logger receives diagnostics. Nothing in the protocol depends on it.
	Logger *log.Logger
	// FailCheck is invoked at every Checkpoint.
	FailCheck FailCheck
}

// DefaultConfig returns a Config with every field set.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.QuorumTimeout <= 0 {
		c.QuorumTimeout = DefaultQuorumTimeout
	}
	if c.Logger == nil {
		c.Logger = log.New(os.Stderr, "ordo: ", log.LstdFlags)
	}
	if c.FailCheck == nil {
		c.FailCheck = noFailCheck
	}
	return c
}
