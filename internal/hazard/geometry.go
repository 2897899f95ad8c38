package hazard

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

const metersPerDegreeLat = 111320.0

// project converts a lon/lat point into local planar meters around a
// reference latitude. Good enough at buffer scale (a few kilometers).
func project(p orb.Point, refLat float64) orb.Point {
	return orb.Point{
		p[0] * metersPerDegreeLat * math.Cos(refLat*math.Pi/180),
		p[1] * metersPerDegreeLat,
	}
}

// pointSegmentDistance returns the planar distance from p to segment ab,
// all in projected meters.
func pointSegmentDistance(p, a, b orb.Point) float64 {
	abx, aby := b[0]-a[0], b[1]-a[1]
	apx, apy := p[0]-a[0], p[1]-a[1]

	lenSq := abx*abx + aby*aby
	if lenSq == 0 {
		return math.Hypot(apx, apy)
	}

	t := (apx*abx + apy*aby) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	cx, cy := a[0]+t*abx-p[0], a[1]+t*aby-p[1]
	return math.Hypot(cx, cy)
}

// segmentsIntersect reports whether segments ab and cd cross, in planar coords
func segmentsIntersect(a, b, c, d orb.Point) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)

	if o1 != o2 && o3 != o4 {
		return true
	}

	// Collinear overlaps
	if o1 == 0 && onSegment(a, b, c) {
		return true
	}
	if o2 == 0 && onSegment(a, b, d) {
		return true
	}
	if o3 == 0 && onSegment(c, d, a) {
		return true
	}
	if o4 == 0 && onSegment(c, d, b) {
		return true
	}
	return false
}

func orientation(a, b, c orb.Point) int {
	v := (b[1]-a[1])*(c[0]-b[0]) - (b[0]-a[0])*(c[1]-b[1])
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// segmentSegmentDistance returns the planar distance between segments ab and cd
func segmentSegmentDistance(a, b, c, d orb.Point) float64 {
	if segmentsIntersect(a, b, c, d) {
		return 0
	}
	return math.Min(
		math.Min(pointSegmentDistance(a, c, d), pointSegmentDistance(b, c, d)),
		math.Min(pointSegmentDistance(c, a, b), pointSegmentDistance(d, a, b)),
	)
}

// pointToGeometry returns the distance in meters from a lon/lat point to a
// geometry. Points inside a polygon are at distance zero.
func pointToGeometry(pt orb.Point, g orb.Geometry) float64 {
	switch geom := g.(type) {
	case orb.Point:
		return geo.DistanceHaversine(pt, geom)
	case orb.LineString:
		return pointToLine(pt, geom)
	case orb.Polygon:
		if planar.PolygonContains(geom, pt) {
			return 0
		}
		d := math.Inf(1)
		for _, ring := range geom {
			d = math.Min(d, pointToLine(pt, orb.LineString(ring)))
		}
		return d
	case orb.MultiPolygon:
		d := math.Inf(1)
		for _, poly := range geom {
			d = math.Min(d, pointToGeometry(pt, poly))
		}
		return d
	case orb.MultiLineString:
		d := math.Inf(1)
		for _, ls := range geom {
			d = math.Min(d, pointToLine(pt, ls))
		}
		return d
	default:
		return math.Inf(1)
	}
}

func pointToLine(pt orb.Point, line orb.LineString) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	if len(line) == 1 {
		return geo.DistanceHaversine(pt, line[0])
	}

	refLat := pt[1]
	pp := project(pt, refLat)

	d := math.Inf(1)
	for i := 0; i < len(line)-1; i++ {
		a := project(line[i], refLat)
		b := project(line[i+1], refLat)
		d = math.Min(d, pointSegmentDistance(pp, a, b))
	}
	return d
}

// segmentToGeometry returns the distance in meters from segment (a, b) in
// lon/lat to a geometry. A segment crossing a polygon is at distance zero.
func segmentToGeometry(a, b orb.Point, g orb.Geometry) float64 {
	refLat := (a[1] + b[1]) / 2
	pa := project(a, refLat)
	pb := project(b, refLat)

	switch geom := g.(type) {
	case orb.Point:
		return pointSegmentDistance(project(geom, refLat), pa, pb)
	case orb.LineString:
		return segmentToLine(pa, pb, geom, refLat)
	case orb.Polygon:
		if planar.PolygonContains(geom, a) || planar.PolygonContains(geom, b) {
			return 0
		}
		d := math.Inf(1)
		for _, ring := range geom {
			d = math.Min(d, segmentToLine(pa, pb, orb.LineString(ring), refLat))
		}
		return d
	case orb.MultiPolygon:
		d := math.Inf(1)
		for _, poly := range geom {
			d = math.Min(d, segmentToGeometry(a, b, poly))
		}
		return d
	case orb.MultiLineString:
		d := math.Inf(1)
		for _, ls := range geom {
			d = math.Min(d, segmentToLine(pa, pb, ls, refLat))
		}
		return d
	default:
		return math.Inf(1)
	}
}

func segmentToLine(pa, pb orb.Point, line orb.LineString, refLat float64) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	if len(line) == 1 {
		return pointSegmentDistance(project(line[0], refLat), pa, pb)
	}

	d := math.Inf(1)
	for i := 0; i < len(line)-1; i++ {
		c := project(line[i], refLat)
		e := project(line[i+1], refLat)
		d = math.Min(d, segmentSegmentDistance(pa, pb, c, e))
	}
	return d
}

// padBound grows a geometry bound by a radius in meters, converted to
// degrees at the bound's latitude. Guards the cosine near the poles.
func padBound(b orb.Bound, radiusMeters float64) orb.Bound {
	dLat := radiusMeters / metersPerDegreeLat

	lat := math.Max(math.Abs(b.Min[1]), math.Abs(b.Max[1]))
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := radiusMeters / (metersPerDegreeLat * cosLat)

	return orb.Bound{
		Min: orb.Point{b.Min[0] - dLon, b.Min[1] - dLat},
		Max: orb.Point{b.Max[0] + dLon, b.Max[1] + dLat},
	}
}
