package analysis

// Metric is a device measurement that is either a value of an alive device or
// the reason the device was classified dead.
type Metric struct {
	value  float64
	reason string
}

// Alive returns a metric holding v
func Alive(v float64) Metric {
	return Metric{value: v}
}

// Dead returns a metric of a dead device
func Dead(reason string) Metric {
	if reason == "" {
		reason = "dead"
	}
	return Metric{reason: reason}
}

// IsDead reports whether the metric belongs to a dead device
func (m Metric) IsDead() bool {
	return m.reason != ""
}

// Value returns the measured value and true, or 0 and false for a dead device.
func (m Metric) Value() (float64, bool) {
	if m.IsDead() {
		return 0, false
	}
	return m.value, true
}

// Reason returns why the device is dead, empty for an alive device.
func (m Metric) Reason() string {
	return m.reason
}
