package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivanoskov/formbot/internal/form"
	"github.com/ivanoskov/formbot/internal/model"
)

var mappingPush bool

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Print the effective field mapping",
	Long: `Resolves the field mapping the bot would use (defaults, FORM_MAPPING_FILE,
then the Supabase table) and prints it. With --push, the result is upserted
into the Supabase table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if err := cfg.ValidateForm(); err != nil {
			return err
		}

		m, err := resolveMapping(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "submit_url: %s\n", m.SubmitURL)
		for _, f := range model.Fields {
			fmt.Fprintf(out, "%-12s %s\n", f, m.Entry(f))
		}
		if m.Unconfigured() {
			fmt.Fprintf(out, "\nentry IDs are placeholders (prefix %s): submissions are simulated\n", form.PlaceholderPrefix)
		}

		if !mappingPush {
			return nil
		}
		repo, err := mappingSource(cfg, logger)
		if err != nil {
			return err
		}
		if repo == nil {
			return errors.New("--push needs SUPABASE_URL and SUPABASE_KEY")
		}
		return repo.SaveFieldMappings(cmd.Context(), m.Names())
	},
}

func init() {
	mappingCmd.Flags().BoolVar(&mappingPush, "push", false, "upsert the mapping into the Supabase table")
}
