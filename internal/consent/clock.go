package consent

import (
	"time"

	"github.com/google/uuid"
)

// Clock is the time source for record timestamps, cookie expiry and the
// decision log's reporting windows.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock. It is the Manager's default.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// stampMillis returns the record timestamp for now: epoch milliseconds.
func stampMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}

// IDGenerator names stored decisions.
type IDGenerator interface {
	New() string
}

// UUIDGenerator names decisions with random (version 4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }
