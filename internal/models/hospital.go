package models

// HospitalRef is the minimal reference to a hospital.
type HospitalRef struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Hospital is a directory entry with capacity. Capacity counts are kept as
// Count so absent, null or placeholder values decode without error; use
// metrics.Number to read them.
type Hospital struct {
	ID               ID                     `json:"id"`
	Name             string                 `json:"name"`
	Latitude         float64                `json:"latitude"`
	Longitude        float64                `json:"longitude"`
	ICUBedsAvailable Count            `json:"icu_beds_available,omitempty"`
	ICUBedsTotal     Count            `json:"icu_beds_total,omitempty"`
	HasTrauma        bool             `json:"has_trauma"`
	BloodStock       map[string]Count `json:"blood_stock,omitempty"`
}

// Ref returns the hospital's reference.
func (h Hospital) Ref() HospitalRef {
	return HospitalRef{ID: h.ID, Name: h.Name}
}

// AllocatedHospital is the hospital chosen by an allocation. The API may
// annotate it with its own distance and formatted eta.
type AllocatedHospital struct {
	Hospital
	Distance *float64 `json:"distance,omitempty"`
	ETA      string   `json:"eta,omitempty"`
}

// SelectedHospital is the hospital currently highlighted by the console.
type SelectedHospital struct {
	HospitalRef
	Distance *float64 `json:"distance,omitempty"`
	ETA      string   `json:"eta,omitempty"`
}

// SelectFromAllocation merges an allocation into a SelectedHospital. The
// allocation's explicit distance_km and eta_minutes win over whatever the
// hospital reference already carries. Returns nil when no hospital resolved:
// the API sends an allocated_hospital carrying only distance and eta when
// nothing was allocated.
func SelectFromAllocation(a *Allocation) *SelectedHospital {
	if a == nil || a.AllocatedHospital == nil {
		return nil
	}
	h := a.AllocatedHospital
	if h.ID.Empty() && h.Name == "" {
		return nil
	}
	sel := &SelectedHospital{HospitalRef: h.Ref(), ETA: h.ETA}
	if h.Distance != nil {
		sel.Distance = Ptr(*h.Distance)
	}
	if a.DistanceKm != nil {
		sel.Distance = Ptr(*a.DistanceKm)
	}
	if a.EtaMinutes != nil {
		sel.ETA = FormatETA(*a.EtaMinutes)
	}
	return sel
}
