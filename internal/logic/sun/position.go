package sun

import (
	"math"
	"time"
)

// Position is the sun's apparent direction seen from a site.
type Position struct {
	Azimuth   float64 // degrees from north, eastward, [0,360)
	Elevation float64 // degrees above the horizon, refraction corrected
}

// Calculate returns the sun position at t for an observer at
// (latitude, longitude), north and east positive, using the NOAA
// low-precision solar formulae (about one arcminute).
func Calculate(latitude, longitude float64, t time.Time) Position {
	jd := julianDate(t.UTC())
	jc := (jd - 2451545.0) / 36525.0 // centuries since J2000.0

	meanLong := math.Mod(280.46646+jc*(36000.76983+jc*0.0003032), 360)
	meanAnom := rad(357.52911 + jc*(35999.05029-0.0001537*jc))
	center := math.Sin(meanAnom)*(1.914602-jc*(0.004817+0.000014*jc)) +
		math.Sin(2*meanAnom)*(0.019993-0.000101*jc) +
		math.Sin(3*meanAnom)*0.000289

	omega := rad(125.04 - 1934.136*jc)
	lambda := rad(meanLong + center - 0.00569 - 0.00478*math.Sin(omega))
	obliquity := 23 + (26+(21.448-jc*(46.815+jc*(0.00059-jc*0.001813)))/60)/60
	eps := rad(obliquity + 0.00256*math.Cos(omega))

	ra := deg(math.Atan2(math.Cos(eps)*math.Sin(lambda), math.Cos(lambda)))
	dec := math.Asin(math.Sin(eps) * math.Sin(lambda))

	gmst := 280.46061837 + 360.98564736629*(jd-2451545.0) + 0.000387933*jc*jc - jc*jc*jc/38710000
	ha := rad(wrap180(gmst + longitude - ra))

	lat := rad(latitude)
	alt := math.Asin(math.Sin(lat)*math.Sin(dec) + math.Cos(lat)*math.Cos(dec)*math.Cos(ha))

	cosAz := (math.Sin(dec) - math.Sin(lat)*math.Sin(alt)) / (math.Cos(lat) * math.Cos(alt))
	if math.IsNaN(cosAz) {
		cosAz = -1 // at a pole or zenith azimuth is undefined; call it south
	}
	az := deg(math.Acos(math.Max(-1, math.Min(1, cosAz))))
	if math.Sin(ha) > 0 {
		az = 360 - az // afternoon: sun is west of the meridian
	}
	if az >= 360 {
		az -= 360
	}

	el := deg(alt)
	return Position{Azimuth: az, Elevation: el + refraction(el)}
}

// refraction returns the atmospheric lift in degrees for a geometric elevation.
func refraction(el float64) float64 {
	var arcsec float64
	switch {
	case el >= 85 || el <= -0.575:
		return 0
	case el > 5:
		tan := math.Tan(rad(el))
		arcsec = 58.1/tan - 0.07/math.Pow(tan, 3) + 0.000086/math.Pow(tan, 5)
	default:
		arcsec = 1735 + el*(-518.2+el*(103.4+el*(-12.79+el*0.711)))
	}
	return arcsec / 3600
}

func julianDate(t time.Time) float64 {
	y, m, d := t.Year(), int(t.Month()), t.Day()
	if m <= 2 {
		y--
		m += 12
	}
	a := y / 100
	b := 2 - a + a/4
	dayFrac := (float64(t.Hour()) + float64(t.Minute())/60 + (float64(t.Second())+float64(t.Nanosecond())/1e9)/3600) / 24
	return math.Floor(365.25*float64(y+4716)) + math.Floor(30.6001*float64(m+1)) + float64(d+b) - 1524.5 + dayFrac
}

func wrap180(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a < -180 {
		a += 360
	}
	return a
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }
