package core

import (
	"fmt"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"gonum.org/v1/gonum/spatial/r3"
)

// minTLELineLen is the column count of a well-formed two-line element
// line. go-satellite indexes fixed columns and panics on shorter input.
const minTLELineLen = 69

// InitialStateFromTLE propagates a two-line element set to the given
// epoch with SGP4 and returns the inertial (ECI) position and velocity
// in metres and metres per second. The inertial frame is the right one
// for seeding an N-body state: unlike an Earth-fixed frame it carries no
// frame rotation, so the returned velocity can be handed to the
// integrator as-is.
func InitialStateFromTLE(line1, line2 string, at time.Time) (pos, vel r3.Vec, err error) {
	if len(line1) < minTLELineLen || len(line2) < minTLELineLen {
		return r3.Vec{}, r3.Vec{}, fmt.Errorf("propagate tle: element line shorter than %d columns", minTLELineLen)
	}

	// go-satellite panics on unparsable element fields; surface that as
	// an error instead of taking the process down over one bad scenario
	// entry.
	defer func() {
		if r := recover(); r != nil {
			pos, vel = r3.Vec{}, r3.Vec{}
			err = fmt.Errorf("propagate tle: %v", r)
		}
	}()

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)

	at = at.UTC()
	year, month, day := at.Date()
	hour, min, sec := at.Clock()
	posECI, velECI := satellite.Propagate(sat, year, int(month), day, hour, min, sec)

	const kmToM = 1000.0
	pos = r3.Vec{X: posECI.X * kmToM, Y: posECI.Y * kmToM, Z: posECI.Z * kmToM}
	vel = r3.Vec{X: velECI.X * kmToM, Y: velECI.Y * kmToM, Z: velECI.Z * kmToM}

	if r3.Norm2(pos) == 0 {
		return r3.Vec{}, r3.Vec{}, fmt.Errorf("propagate tle: propagation returned a zero position")
	}
	return pos, vel, nil
}
