package definition

import (
	"fmt"
	"strings"
)

// Version selects one of the built-in tracker layouts.
type Version int

const (
	TestRun2014 Version = iota + 1
	Tracker2014
	Tracker2019
)

// Versions lists every known layout.
var Versions = []Version{TestRun2014, Tracker2014, Tracker2019}

// ParseVersion accepts the names used in configs and on the command line.
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "testrun", "testrun2014", "test-run":
		return TestRun2014, nil
	case "2014", "tracker2014":
		return Tracker2014, nil
	case "2019", "tracker2019":
		return Tracker2019, nil
	}
	return 0, fmt.Errorf("definition: unknown version %q", s)
}

func (v Version) String() string {
	switch v {
	case TestRun2014:
		return "testrun"
	case Tracker2014:
		return "2014"
	case Tracker2019:
		return "2019"
	default:
		return fmt.Sprintf("version(%d)", int(v))
	}
}

// Layers returns the number of tracking layers.
func (v Version) Layers() int {
	switch v {
	case TestRun2014:
		return 5
	case Tracker2014:
		return 6
	case Tracker2019:
		return 7
	default:
		return 0
	}
}

// FirstLongLayer is the first layer built from long modules with hole and
// slot sensors. The test run has none and returns Layers()+1.
func (v Version) FirstLongLayer() int {
	switch v {
	case Tracker2014:
		return 4
	case Tracker2019:
		return 5
	default:
		return v.Layers() + 1
	}
}
