package chart

import (
	"math"
	"sort"
	"time"

	"github.com/port-experimental/port-pr-chart/internal/api"
)

const (
	// AllProperties disables property filtering.
	AllProperties = "default"
	// AllValues disables value filtering.
	AllValues = "all"

	dateLayout = "2006-01-02"
)

// Point is one day of chart data.
type Point struct {
	Date     string  `json:"date"`
	Hours    float64 `json:"hours"`
	Count    int     `json:"count"`
	AvgHours float64 `json:"avgHours"`
}

// Filter reports whether entity should be charted for property == value.
// The sentinels AllProperties and AllValues match everything.
func Filter(entity api.Entity, property, value string) bool {
	if property == "" || property == AllProperties || value == "" || value == AllValues {
		return true
	}
	v, ok := PropertyValue(entity, property)
	if !ok {
		return false
	}
	return Stringify(v) == value
}

// Aggregate groups entities by the UTC date of createdAt. Each entity adds
// |updatedAt - createdAt| in hours to its day. Entities whose timestamps do
// not parse are skipped. Points are sorted by date.
func Aggregate(entities []api.Entity, property, value string) []Point {
	byDate := make(map[string]*Point)

	for _, entity := range entities {
		if !Filter(entity, property, value) {
			continue
		}

		createdAt, ok := timestamp(entity, "createdAt")
		if !ok {
			continue
		}
		updatedAt, ok := timestamp(entity, "updatedAt")
		if !ok {
			continue
		}

		date := createdAt.UTC().Format(dateLayout)
		p, ok := byDate[date]
		if !ok {
			p = &Point{Date: date}
			byDate[date] = p
		}
		p.Hours += math.Abs(updatedAt.Sub(createdAt).Hours())
		p.Count++
	}

	points := make([]Point, 0, len(byDate))
	for _, p := range byDate {
		p.AvgHours = p.Hours / float64(p.Count)
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
	return points
}

func timestamp(entity api.Entity, field string) (time.Time, bool) {
	raw, ok := entity[field].(string)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
