package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/medilink-console/internal/metrics"
	"github.com/raphaelgruber/medilink-console/internal/models"
)

var hospitalsTrauma bool

var hospitalsCmd = &cobra.Command{
	Use:   "hospitals",
	Short: "List hospitals with ICU and blood capacity",
	Long: `List hospitals with ICU and blood capacity, followed by the directory totals.

Examples:
  medilink hospitals
  medilink hospitals --trauma -v`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hospitals, err := apiClient.ListHospitals(cmd.Context())
		if err != nil {
			return fmt.Errorf("list hospitals: %w", err)
		}
		if hospitalsTrauma {
			hospitals = slices.DeleteFunc(hospitals, func(h models.Hospital) bool { return !h.HasTrauma })
		}
		printHospitals(os.Stdout, hospitals, verbose)
		return nil
	},
}

var patientsCmd = &cobra.Command{
	Use:   "patients",
	Short: "List registered patients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		patients, err := apiClient.ListPatients(cmd.Context())
		if err != nil {
			return fmt.Errorf("list patients: %w", err)
		}
		printPatients(os.Stdout, patients, verbose)
		return nil
	},
}

func init() {
	hospitalsCmd.Flags().BoolVar(&hospitalsTrauma, "trauma", false, "only trauma centers")
}

func printHospitals(w io.Writer, hospitals []models.Hospital, detailed bool) {
	if len(hospitals) == 0 {
		fmt.Fprintln(w, "No hospitals found.")
		return
	}

	fmt.Fprintf(w, "Hospitals (%d):\n\n", len(hospitals))
	for _, h := range hospitals {
		traumaMark := ""
		if h.HasTrauma {
			traumaMark = " [trauma]"
		}
		fmt.Fprintf(w, "- %s (id %s)%s\n", h.Name, h.ID, traumaMark)
		fmt.Fprintf(w, "  ICU beds: %.0f available", metrics.Number(h.ICUBedsAvailable))
		if total := metrics.Number(h.ICUBedsTotal); total > 0 {
			fmt.Fprintf(w, " of %.0f", total)
		}
		fmt.Fprintln(w)
		if detailed && len(h.BloodStock) > 0 {
			fmt.Fprintf(w, "  Blood: %s\n", formatBloodStock(h.BloodStock))
		}
	}

	fmt.Fprintf(w, "\nTotals: %s\n", formatCapacity(metrics.Summarize(hospitals)))
}

// formatBloodStock renders a blood stock as "A+ 4, O+ 8" ordered by type.
func formatBloodStock(stock map[string]models.Count) string {
	types := make([]string, 0, len(stock))
	for bt := range stock {
		types = append(types, bt)
	}
	slices.Sort(types)

	parts := make([]string, 0, len(types))
	for _, bt := range types {
		parts = append(parts, fmt.Sprintf("%s %.0f", bt, metrics.Number(stock[bt])))
	}
	return strings.Join(parts, ", ")
}

func printPatients(w io.Writer, patients []models.Patient, detailed bool) {
	if len(patients) == 0 {
		fmt.Fprintln(w, "No patients found.")
		return
	}

	fmt.Fprintf(w, "Patients (%d):\n\n", len(patients))
	for _, p := range patients {
		fmt.Fprintf(w, "- %s (id %s)", p.Name, p.ID)
		if p.BloodType != "" {
			fmt.Fprintf(w, " %s", p.BloodType)
		}
		if p.Age > 0 {
			fmt.Fprintf(w, ", age %d", p.Age)
		}
		fmt.Fprintln(w)
		if detailed {
			for _, line := range p.HistoryLines() {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
}
