package main

import (
	"fmt"

	"github.com/andreiashu/geostate"
	"github.com/spf13/cobra"
)

// knownMentions are looked up against the table to catch a table built from
// the wrong columns.
var knownMentions = []struct {
	mention string
	want    string
}{
	{"France", "FRA"},
	{"Germany", "DEU"},
	{"Japan", "JPN"},
	{"Brazil", "BRA"},
}

func newValidateCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the mapping table",
		Long: `Load the mapping table and check that every code is three upper-case
letters. With --strict, a few well-known country names must also resolve to
their expected codes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.loadTable()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pattern count: %d (OK)\n", t.Len())

			if err := t.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Codes: OK")

			if strict {
				if err := checkKnownMentions(t); err != nil {
					return err
				}
				fmt.Fprintf(out, "Known mentions: %d OK\n", len(knownMentions))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "also require well-known country names to resolve")
	return cmd
}

func checkKnownMentions(t *geostate.Table) error {
	for _, km := range knownMentions {
		got := geostate.ToISOCodes([]string{km.mention}, t)[0]
		if got != km.want {
			return fmt.Errorf("mention %q = %q, want %q", km.mention, got, km.want)
		}
	}
	return nil
}
