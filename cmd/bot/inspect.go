package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivanoskov/formbot/internal/form"
	"github.com/ivanoskov/formbot/internal/inspect"
)

var (
	inspectURL string
	inspectOut string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Discover the entry IDs of the Google Form",
	Long: `Fetches the form page and binds the first five entry IDs found, in page
order, to type, amount, category, description and date. The questions on the
form must be in that order. Login-protected forms expose no IDs; configure
those by hand.

The result is a mapping file usable as FORM_MAPPING_FILE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		formURL := inspectURL
		if formURL == "" {
			if err := cfg.ValidateForm(); err != nil {
				return err
			}
			formURL = cfg.FormURL
		}

		logger.Info("inspecting form", "url", formURL)
		res, err := inspect.Extract(cmd.Context(), &http.Client{Timeout: cfg.SubmitTimeout}, formURL)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %d unique fields found\n", len(res.Entries))
		for _, in := range res.Inputs {
			label := in.Label
			if label == "" {
				label = "(no label)"
			}
			fmt.Fprintf(out, "# %s: %s\n", in.Name, label)
		}

		if inspectOut == "" {
			return form.WriteMappingFile(out, res.Mapping)
		}

		f, err := os.Create(inspectOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", inspectOut, err)
		}
		defer f.Close()
		if err := form.WriteMappingFile(f, res.Mapping); err != nil {
			return err
		}
		fmt.Fprintf(out, "# mapping written to %s\n", inspectOut)
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectURL, "url", "", "form view URL (default GOOGLE_FORM_URL)")
	inspectCmd.Flags().StringVarP(&inspectOut, "out", "o", "", "write the mapping file here instead of stdout")
}
