package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Coord is a latitude or longitude that upstream payloads may omit, send as a
// number, or send as a numeric string. Anything that does not resolve to a
// finite number leaves Valid false.
type Coord struct {
	Value float64
	Valid bool
}

func NewCoord(v float64) Coord {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Coord{}
	}
	return Coord{Value: v, Valid: true}
}

// ParseCoord accepts the textual forms seen in vehicle listings.
func ParseCoord(s string) Coord {
	s = strings.TrimSpace(s)
	if s == "" {
		return Coord{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Coord{}
	}
	return NewCoord(v)
}

func (c *Coord) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*c = Coord{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ParseCoord(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*c = NewCoord(v)
	}
	return nil
}

func (c Coord) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// Position is a possibly incomplete coordinate pair.
type Position struct {
	Lat Coord `json:"latitude"`
	Lon Coord `json:"longitude"`
}

func PositionOf(p GeoPoint) Position {
	return Position{Lat: NewCoord(p.Lat), Lon: NewCoord(p.Lon)}
}

// Point reports the position as a GeoPoint, or false when either axis is missing.
func (p Position) Point() (GeoPoint, bool) {
	if !p.Lat.Valid || !p.Lon.Valid {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: p.Lat.Value, Lon: p.Lon.Value}, true
}
