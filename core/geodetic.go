package core

import (
	"math"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/numeric"
)

// WGS-84 ellipsoid axes in kilometres, matching go-satellite's geodetic
// conversion.
const (
	wgs84A = 6378.137
	wgs84B = 6356.7523142
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
	mToKm    = 1e-3
)

// geodetic converts local east/north/up offsets from the launch site into
// latitude and longitude. The site frame is fixed to a non-rotating Earth.
type geodetic struct {
	origin          satellite.Vector3 // km, Earth-centred Earth-fixed
	east, north, up numeric.Vec3
}

func newGeodetic(latitudeDeg, longitudeDeg, altitude float64) geodetic {
	lat := latitudeDeg * degToRad
	lon := longitudeDeg * degToRad
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	sinLon, cosLon := math.Sin(lon), math.Cos(lon)

	e2 := 1 - (wgs84B*wgs84B)/(wgs84A*wgs84A)
	n := wgs84A / math.Sqrt(1-e2*sinLat*sinLat)
	h := altitude * mToKm

	return geodetic{
		origin: satellite.Vector3{
			X: (n + h) * cosLat * cosLon,
			Y: (n + h) * cosLat * sinLon,
			Z: (n*(1-e2) + h) * sinLat,
		},
		east:  numeric.Vec3{X: -sinLon, Y: cosLon},
		north: numeric.Vec3{X: -sinLat * cosLon, Y: -sinLat * sinLon, Z: cosLat},
		up:    numeric.Vec3{X: cosLat * cosLon, Y: cosLat * sinLon, Z: sinLat},
	}
}

// latLon returns the latitude and longitude in degrees of a point given in
// metres east/north/up of the launch site.
func (g geodetic) latLon(p numeric.Vec3) (float64, float64) {
	d := g.east.Scale(p.X * mToKm).
		Add(g.north.Scale(p.Y * mToKm)).
		Add(g.up.Scale(p.Z * mToKm))
	ecef := satellite.Vector3{X: g.origin.X + d.X, Y: g.origin.Y + d.Y, Z: g.origin.Z + d.Z}

	// With GMST zero the inertial and Earth-fixed frames coincide.
	_, _, ll := satellite.ECIToLLA(ecef, 0)
	return ll.Latitude * radToDeg, ll.Longitude * radToDeg
}
