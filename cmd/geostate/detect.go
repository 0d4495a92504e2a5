package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/andreiashu/geostate"
	"github.com/spf13/cobra"
)

// Messages shown for empty result lists.
const (
	noEntitiesMsg = "No GPE entities detected."
	noCodesMsg    = "No ISO codes detected."
	noCleanedMsg  = "No valid ISO codes found."
)

func newDetectCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "detect [text...]",
		Short: "Detect country mentions in text",
		Long: `Detect country mentions in text and print three lists: the extracted
entities, all codes (unmapped mentions shown as UNKNOWN_<mention>) and the
cleaned codes.

Text is taken from the arguments, or from stdin when none are given.

Examples:
  geostate detect "Delegates from France and Atlantis met in Germany."
  geostate detect --json < speech.txt
  geostate detect --suggest 2 "Frnace"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			d, err := a.loadDetector(cmd.Context())
			if err != nil {
				return err
			}
			res, err := d.Detect(cmd.Context(), text)
			if err != nil {
				return err
			}
			view := newResultView(res, d.Table(), a.v.GetInt("suggest"))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			writeResult(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func inputText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(b), nil
}

// unresolvedView describes a mention that has no table entry.
type unresolvedView struct {
	Mention     string   `json:"mention"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// resultView is the display form of a detection result.
type resultView struct {
	Entities   []string         `json:"entities"`
	Codes      []string         `json:"codes"`
	Cleaned    []string         `json:"cleaned"`
	Unresolved []unresolvedView `json:"unresolved,omitempty"`
}

func newResultView(res geostate.Detection, t *geostate.Table, suggest int) resultView {
	v := resultView{Entities: res.Mentions, Codes: res.Codes, Cleaned: res.Cleaned}
	for _, r := range res.Resolutions {
		if r.Resolved {
			continue
		}
		u := unresolvedView{Mention: r.Mention}
		if suggest > 0 {
			u.Suggestions = t.Suggest(r.Mention, suggest)
		}
		v.Unresolved = append(v.Unresolved, u)
	}
	return v
}

func writeResult(w io.Writer, v resultView) {
	writeList(w, "Extracted Entities", v.Entities, noEntitiesMsg)
	writeList(w, "All Country Codes", v.Codes, noCodesMsg)
	writeList(w, "Cleaned Country Codes", v.Cleaned, noCleanedMsg)
	for _, u := range v.Unresolved {
		if len(u.Suggestions) > 0 {
			fmt.Fprintf(w, "%q not mapped; did you mean: %s?\n", u.Mention, strings.Join(u.Suggestions, ", "))
		}
	}
}

func writeList(w io.Writer, title string, items []string, empty string) {
	fmt.Fprintln(w, title)
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s\n\n", empty)
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "  %s\n", it)
	}
	fmt.Fprintln(w)
}
