package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/medilink-console/internal/descriptor"
	"github.com/raphaelgruber/medilink-console/internal/models"
)

var identifyProbe bool

var identifyCmd = &cobra.Command{
	Use:   "identify [patient-id]",
	Short: "Identify a patient from their biometric descriptor",
	Long: `Identify a patient from their biometric descriptor.

The descriptor is derived deterministically from the patient id, the same
way the demo does. With --probe an empty descriptor is sent, which checks
that the identification service is reachable.

Examples:
  medilink identify 5
  medilink identify --probe`,
	Args: func(cmd *cobra.Command, args []string) error {
		if identifyProbe {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var desc []float64
		if !identifyProbe {
			desc = descriptor.ForPatient(args[0])
		}
		result, err := apiClient.IdentifyPatient(cmd.Context(), desc)
		if err != nil {
			return fmt.Errorf("identify patient: %w", err)
		}
		printIdentification(os.Stdout, result)
		return nil
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate <medical text>",
	Short: "Translate medical jargon into plain language",
	Long: `Translate medical jargon into plain language.

Text longer than 1000 characters is truncated.

Examples:
  medilink translate "Patient presents with acute myocardial infarction"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := apiClient.TranslateJargon(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("translate jargon: %w", err)
		}
		printJargon(os.Stdout, result)
		return nil
	},
}

var shareCmd = &cobra.Command{
	Use:   "share <patient-id> <hospital-id>",
	Short: "Share a patient's medical history with a hospital",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := apiClient.ShareMedicalHistory(cmd.Context(), models.ID(args[0]), models.ID(args[1]))
		if err != nil {
			return fmt.Errorf("share medical history: %w", err)
		}
		if !result.Success {
			msg := result.Error
			if msg == "" {
				msg = "request was not accepted"
			}
			return fmt.Errorf("share medical history: %s", msg)
		}

		hospital := args[1]
		if result.Shared != nil && result.Shared.Hospital != "" {
			hospital = result.Shared.Hospital
		}
		fmt.Printf("Medical history shared with %s\n", hospital)
		if result.Message != "" {
			fmt.Printf("  %s\n", result.Message)
		}
		return nil
	},
}

var (
	allocateLat        float64
	allocateLon        float64
	allocateSeverity   string
	allocateNeedsBlood bool
)

var allocateCmd = &cobra.Command{
	Use:   "allocate <patient-id>",
	Short: "Allocate a hospital for a known patient",
	Long: `Allocate a hospital for a known patient at a location.

Defaults to downtown Dubai, critical severity, blood needed.

Examples:
  medilink allocate 5
  medilink allocate 5 --lat 25.2048 --lon 55.2708 --severity moderate --needs-blood=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.DefaultAllocationRequest(models.ID(args[0]))
		if cmd.Flags().Changed("lat") {
			req.Latitude = allocateLat
		}
		if cmd.Flags().Changed("lon") {
			req.Longitude = allocateLon
		}
		if allocateSeverity != "" {
			req.Severity = allocateSeverity
		}
		req.NeedsBlood = allocateNeedsBlood

		alloc, err := apiClient.Allocate(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("allocate: %w", err)
		}
		printAllocation(os.Stdout, alloc)
		return nil
	},
}

var (
	registerAge       int
	registerBloodType string
	registerAllergies []string
	registerSeed      string
)

var registerCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Register a new patient",
	Long: `Register a new patient with the MediLink API.

With --seed the face descriptor is derived from the seed the same way the
demo derives it from a patient id, so "medilink identify <seed>" finds the
new patient. Without it the API generates a descriptor from the next id.

Examples:
  medilink register "Sara Ali" --age 29 --blood-type A-
  medilink register "Omar Khalid" --allergy Penicillin --allergy Latex --seed 42`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := newRegistration(strings.Join(args, " "), registerAge, registerBloodType, registerAllergies, registerSeed)
		result, err := apiClient.Register(cmd.Context(), reg)
		if err != nil {
			return fmt.Errorf("register patient: %w", err)
		}
		printRegistration(os.Stdout, result)
		return nil
	},
}

func init() {
	registerCmd.Flags().IntVar(&registerAge, "age", 0, "patient age")
	registerCmd.Flags().StringVar(&registerBloodType, "blood-type", "", "blood type, e.g. O+")
	registerCmd.Flags().StringArrayVar(&registerAllergies, "allergy", nil, "known allergy (repeatable)")
	registerCmd.Flags().StringVar(&registerSeed, "seed", "", "derive the face descriptor from this id")

	identifyCmd.Flags().BoolVar(&identifyProbe, "probe", false, "send an empty descriptor")

	def := models.DefaultAllocationRequest("")
	allocateCmd.Flags().Float64Var(&allocateLat, "lat", def.Latitude, "incident latitude")
	allocateCmd.Flags().Float64Var(&allocateLon, "lon", def.Longitude, "incident longitude")
	allocateCmd.Flags().StringVar(&allocateSeverity, "severity", def.Severity, "critical, severe, moderate or minor")
	allocateCmd.Flags().BoolVar(&allocateNeedsBlood, "needs-blood", def.NeedsBlood, "patient needs a transfusion")
}

func printIdentification(w io.Writer, id *models.Identification) {
	if !id.MatchFound || id.Patient == nil {
		fmt.Fprintln(w, "No matching patient found.")
		if id.Message != "" {
			fmt.Fprintf(w, "  %s\n", id.Message)
		}
		return
	}

	p := id.Patient
	fmt.Fprintf(w, "Patient identified: %s (%d%% confidence)\n", p.Name, id.ConfidencePercent())
	fmt.Fprintf(w, "  ID: %s", p.ID)
	if p.BloodType != "" {
		fmt.Fprintf(w, ", blood type %s", p.BloodType)
	}
	if id.Method != "" {
		fmt.Fprintf(w, ", method %s", id.Method)
	}
	fmt.Fprintln(w)
	for _, line := range p.HistoryLines() {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func newRegistration(name string, age int, bloodType string, allergies []string, seed string) models.Registration {
	reg := models.Registration{
		Name:      strings.TrimSpace(name),
		Age:       age,
		BloodType: strings.TrimSpace(bloodType),
	}
	if len(allergies) > 0 {
		reg.MedicalHistory = map[string]any{"allergies": allergies}
	}
	if seed != "" {
		reg.FaceDescriptor = descriptor.ForPatient(seed)
	}
	return reg
}

func printRegistration(w io.Writer, r *models.RegistrationResult) {
	verb := "registered"
	if r.Updated {
		verb = "updated"
	}
	if r.Patient == nil {
		fmt.Fprintf(w, "Patient %s.\n", verb)
		return
	}
	p := r.Patient
	fmt.Fprintf(w, "Patient %s: %s (id %s)", verb, p.Name, p.ID)
	if p.BloodType != "" {
		fmt.Fprintf(w, " %s", p.BloodType)
	}
	if p.Age > 0 {
		fmt.Fprintf(w, ", age %d", p.Age)
	}
	fmt.Fprintln(w)
}

func printJargon(w io.Writer, j *models.JargonResult) {
	fmt.Fprintf(w, "Plain language: %s\n", j.Simple)
	if len(j.Terms) > 0 {
		fmt.Fprintf(w, "Terms explained: %s\n", strings.Join(j.Terms, ", "))
	}
	if j.ReadingLevel != nil {
		fmt.Fprintf(w, "Reading level: grade %.1f\n", *j.ReadingLevel)
	}
}

func printAllocation(w io.Writer, a *models.Allocation) {
	fmt.Fprintf(w, "Allocated: %s\n", formatAllocation(a))
	if a.AllocationScore != nil {
		fmt.Fprintf(w, "  Score: %.2f\n", *a.AllocationScore)
	}
	if a.BloodAvailable != nil {
		fmt.Fprintf(w, "  Blood available: %t\n", *a.BloodAvailable)
	}
	for _, d := range a.DonorDetails {
		fmt.Fprintf(w, "  Donor: %s (%.1f km)\n", d.Name, d.Distance)
	}
}
