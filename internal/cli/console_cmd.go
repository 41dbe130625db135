package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askPatient string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the interactive incident console",
	Long: `Open the interactive incident console.

Type an emergency description to get a hospital allocation. When a patient
has been identified, their medical history is shared with the allocated
hospital automatically. On a terminal the console is full-screen; otherwise
lines are read from stdin and events are printed as they happen.

Examples:
  medilink console
  echo "Critical patient at Dubai Mall needs O+ blood" | medilink console`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess := newSession(ctx)
		defer sess.Close()

		if interactive() {
			return runConsole(ctx, sess, false)
		}
		return runLines(ctx, sess, os.Stdin, os.Stdout)
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the scripted emergency demonstration",
	Long: `Run the scripted emergency demonstration.

The demo walks through a full incident: description, biometric
identification, jargon translation, hospital allocation and medical-history
sharing. Set MEDILINK_PACING_SCALE to speed it up (0 disables pauses).

Examples:
  medilink demo
  MEDILINK_PACING_SCALE=0 medilink demo --plain`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess := newSession(ctx)
		defer sess.Close()

		if interactive() {
			return runConsole(ctx, sess, true)
		}
		return runLines(ctx, sess, strings.NewReader("/demo\n"), os.Stdout)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <description>",
	Short: "Submit one emergency description and print the outcome",
	Long: `Submit one emergency description and print the conversation it produces.

With --patient the patient is identified first, so the allocated hospital
receives their medical history.

Examples:
  medilink ask "Car accident on Sheikh Zayed Road, two injured"
  medilink ask "Patient unconscious, needs blood" --patient 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askPatient, "patient", "p", "", "identify this patient id first")
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.Join(strings.Fields(strings.Join(args, " ")), " ")
	if query == "" {
		return fmt.Errorf("description is required")
	}

	ctx := cmd.Context()
	sess := newSession(ctx)
	defer sess.Close()

	var script strings.Builder
	if askPatient != "" {
		fmt.Fprintf(&script, "/identify %s\n", askPatient)
	}
	script.WriteString(query + "\n")
	return runLines(ctx, sess, strings.NewReader(script.String()), os.Stdout)
}
