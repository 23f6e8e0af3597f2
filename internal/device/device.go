package device

import (
	"strconv"
	"strings"
)

// Unknown is the device type reported when the filename carries no type marker.
const Unknown Type = 0

// Type is the device generation encoded in a measurement filename (6, 7 or 8).
type Type int

// typeMarkers are checked in order; the first marker found in the filename wins.
var typeMarkers = []struct {
	marker string
	t      Type
}{
	{"-6-", 6},
	{"-7-", 7},
	{"-8-", 8},
}

// String returns the numeric type, or "Unknown"
func (t Type) String() string {
	if t == Unknown {
		return "Unknown"
	}
	return strconv.Itoa(int(t))
}

// Identity identifies the device a measurement file belongs to.
type Identity struct {
	DeviceID   string // Composite wafer-die key, e.g. "W12-D07"
	DeviceType Type   // Device generation, Unknown if not encoded
}

// ParseFilename extracts the device identity from a measurement filename.
//
// Filenames follow the convention `<prefix>-<prefix>-<wafer>-<prefix>-<die>-....csv`.
// The name is split on "-":
//
//   - with 5 or more segments the device ID is segment[2] + "-" + segment[4];
//   - otherwise the device ID is segment[0] (the whole name when there is no "-").
//
// The device type is taken from the first of the substrings "-6-", "-7-" and
// "-8-" (checked in that order) present anywhere in the name, Unknown otherwise.
// The name is used as is: extensions are not stripped before splitting.
func ParseFilename(name string) Identity {
	return Identity{
		DeviceID:   deviceID(name),
		DeviceType: deviceType(name),
	}
}

func deviceID(name string) string {
	parts := strings.Split(name, "-")
	if len(parts) >= 5 {
		return parts[2] + "-" + parts[4]
	}
	return parts[0]
}

func deviceType(name string) Type {
	for _, m := range typeMarkers {
		if strings.Contains(name, m.marker) {
			return m.t
		}
	}
	return Unknown
}
