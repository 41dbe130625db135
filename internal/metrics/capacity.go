package metrics

import (
	"math"
	"strconv"

	"github.com/raphaelgruber/medilink-console/internal/models"
)

// Capacity summarises a hospital directory.
type Capacity struct {
	Hospitals       int     `json:"hospitals"`
	TraumaCenters   int     `json:"trauma_centers"`
	TotalBeds       float64 `json:"total_beds"`
	TotalBloodUnits float64 `json:"total_blood_units"`
}

// Number coerces an API count to float64. Absent, empty, unparsable and
// non-finite values are zero.
func Number(n models.Count) float64 {
	if n == "" {
		return 0
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// TotalBeds sums available ICU beds across hospitals.
func TotalBeds(hospitals []models.Hospital) float64 {
	var total float64
	for _, h := range hospitals {
		total += Number(h.ICUBedsAvailable)
	}
	return total
}

// TotalBloodUnits sums every blood-type count across hospitals.
func TotalBloodUnits(hospitals []models.Hospital) float64 {
	var total float64
	for _, h := range hospitals {
		for _, units := range h.BloodStock {
			total += Number(units)
		}
	}
	return total
}

// Summarize computes the capacity totals for a hospital directory.
func Summarize(hospitals []models.Hospital) Capacity {
	c := Capacity{
		Hospitals:       len(hospitals),
		TotalBeds:       TotalBeds(hospitals),
		TotalBloodUnits: TotalBloodUnits(hospitals),
	}
	for _, h := range hospitals {
		if h.HasTrauma {
			c.TraumaCenters++
		}
	}
	return c
}
