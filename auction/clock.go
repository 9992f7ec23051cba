package auction

import "time"

// Clock supplies the (timestamp, slot) pair the timing rules run against. The
// core never reads wall-clock time itself; every operation samples the clock
// exactly once at entry.
type Clock interface {
	Now() (timestamp int64, slot uint64)
}

// SlotDuration is the nominal slot length of the host environment.
const SlotDuration = 400 * time.Millisecond

// SystemClock derives timestamps from the OS clock and slots from elapsed
// time since a fixed genesis instant.
type SystemClock struct {
	Genesis time.Time
}

// NewSystemClock returns a SystemClock with genesis at the unix epoch.
func NewSystemClock() *SystemClock {
	return &SystemClock{Genesis: time.Unix(0, 0)}
}

func (c *SystemClock) Now() (int64, uint64) {
	now := time.Now()
	return now.Unix(), uint64(now.Sub(c.Genesis) / SlotDuration)
}

// ManualClock is a hand-advanced clock for tests.
type ManualClock struct {
	Timestamp int64
	Slot      uint64
}

func (c *ManualClock) Now() (int64, uint64) {
	return c.Timestamp, c.Slot
}

// Advance moves the clock forward by d seconds and the corresponding slots.
func (c *ManualClock) Advance(d int64) {
	c.Timestamp += d
	c.Slot += uint64(time.Duration(d) * time.Second / SlotDuration)
}
