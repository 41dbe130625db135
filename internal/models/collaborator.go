package models

// Understanding is the NLU payload. It is opaque to the console and passed
// through unmodified; the accessors only read well-known keys.
type Understanding map[string]any

// Severity returns the "severity" key, or "" when absent.
func (u Understanding) Severity() string {
	s, _ := u["severity"].(string)
	return s
}

// BloodType returns the "blood_type" key, or "" when absent.
func (u Understanding) BloodType() string {
	s, _ := u["blood_type"].(string)
	return s
}

// NeedsBlood returns the "needs_blood" key and whether it was present as a bool.
func (u Understanding) NeedsBlood() (needs, ok bool) {
	needs, ok = u["needs_blood"].(bool)
	return needs, ok
}

// Donor is a blood donor alerted by an allocation.
type Donor struct {
	Name      string  `json:"name"`
	Distance  float64 `json:"distance"`
	BloodType string  `json:"blood_type,omitempty"`
}

// Allocation is the result of matching an emergency to a hospital.
type Allocation struct {
	AllocatedHospital *AllocatedHospital `json:"allocated_hospital,omitempty"`
	DistanceKm        *float64           `json:"distance_km,omitempty"`
	EtaMinutes        *float64           `json:"eta_minutes,omitempty"`

	// Optional annotations from the allocation service.
	Patient           *Patient `json:"patient,omitempty"`
	AllocationScore   *float64 `json:"allocation_score,omitempty"`
	BloodAvailable    *bool    `json:"blood_available,omitempty"`
	DonorsAlerted     int      `json:"donors_alerted,omitempty"`
	DonorDetails      []Donor  `json:"donor_details,omitempty"`
	EmergencyNotified bool     `json:"emergency_notified,omitempty"`
}

// JargonResult is a plain-language rewrite of medical text.
type JargonResult struct {
	Original     string            `json:"original,omitempty"`
	Simple       string            `json:"simple"`
	Terms        []string          `json:"terms"`
	Categories   map[string]string `json:"categories,omitempty"`
	ReadingLevel *float64          `json:"reading_level,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// ChatResponse is the answer to a free-text emergency query.
type ChatResponse struct {
	NaturalResponse   string        `json:"natural_response,omitempty"`
	Understood        Understanding `json:"understood,omitempty"`
	Allocation        *Allocation   `json:"allocation,omitempty"`
	JargonTranslation *JargonResult `json:"jargon_translation,omitempty"`
}

// SharedRecord describes what was disclosed to a hospital.
type SharedRecord struct {
	PatientID   ID     `json:"patient_id,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
	BloodType   string `json:"blood_type,omitempty"`
	Hospital    string `json:"hospital"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// ShareResult is the answer to a medical-history disclosure.
type ShareResult struct {
	Success bool          `json:"success"`
	Shared  *SharedRecord `json:"shared,omitempty"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Registration is a new patient record. Without a descriptor the API
// generates one from the next patient id.
type Registration struct {
	Name           string         `json:"name"`
	Age            int            `json:"age,omitempty"`
	BloodType      string         `json:"blood_type,omitempty"`
	MedicalHistory map[string]any `json:"medical_history,omitempty"`
	FaceDescriptor []float64      `json:"face_descriptor,omitempty"`
}

// RegistrationResult is the answer to a registration.
type RegistrationResult struct {
	Success bool     `json:"success"`
	Patient *Patient `json:"patient,omitempty"`
	Updated bool     `json:"updated,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// AllocationRequest asks the API to allocate a hospital for a known patient.
type AllocationRequest struct {
	PatientID  ID      `json:"patient_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Severity   string  `json:"severity"`
	NeedsBlood bool    `json:"needs_blood"`
}

// DefaultAllocationRequest mirrors the API's defaults (downtown Dubai, critical, needs blood).
func DefaultAllocationRequest(patientID ID) AllocationRequest {
	return AllocationRequest{
		PatientID:  patientID,
		Latitude:   25.1972,
		Longitude:  55.2796,
		Severity:   "critical",
		NeedsBlood: true,
	}
}
