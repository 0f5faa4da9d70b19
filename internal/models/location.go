package models

type Location struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lon float64 `json:"lon" mapstructure:"lon"`
}

// Bounds is the smallest box containing a set of locations.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// Extend grows b so that it contains l.
func (b Bounds) Extend(l Location) Bounds {
	if l.Lat < b.South {
		b.South = l.Lat
	}
	if l.Lat > b.North {
		b.North = l.Lat
	}
	if l.Lon < b.West {
		b.West = l.Lon
	}
	if l.Lon > b.East {
		b.East = l.Lon
	}
	return b
}

func BoundsOf(l Location) Bounds {
	return Bounds{South: l.Lat, West: l.Lon, North: l.Lat, East: l.Lon}
}
