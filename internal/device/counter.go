package device

// Occurrence is a device ID together with the number of files that mapped to it.
type Occurrence struct {
	DeviceID string
	Count    int
}

// Counter counts how many measurement files were processed per device ID.
// It remembers the order in which device IDs were first seen.
type Counter struct {
	counts map[string]int
	order  []string
}

// NewCounter creates an empty Counter
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Add records one more file for the device ID
func (c *Counter) Add(deviceID string) {
	if _, ok := c.counts[deviceID]; !ok {
		c.order = append(c.order, deviceID)
	}
	c.counts[deviceID]++
}

// Count returns the number of files recorded for the device ID
func (c *Counter) Count(deviceID string) int {
	return c.counts[deviceID]
}

// Len returns the number of distinct device IDs
func (c *Counter) Len() int {
	return len(c.order)
}

// Duplicates returns the device IDs seen more than once, in first-seen order.
func (c *Counter) Duplicates() []Occurrence {
	var dups []Occurrence
	for _, id := range c.order {
		if n := c.counts[id]; n > 1 {
			dups = append(dups, Occurrence{DeviceID: id, Count: n})
		}
	}
	return dups
}
