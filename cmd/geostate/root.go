package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/andreiashu/geostate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries state shared by subcommands.
type app struct {
	v   *viper.Viper
	log *slog.Logger
}

// defaultConfigFile is read from the working directory when --config is unset.
const defaultConfigFile = "geostate.yaml"

func newRootCmd() *cobra.Command {
	a := &app{v: newConfig()}

	root := &cobra.Command{
		Use:   "geostate",
		Short: "Detect country mentions in text and map them to ISO codes",
		Long: `Detect geopolitical entities (GPE) in free text and standardise them to
3-letter ISO country codes.

The model is selected with --model:
  builtin               embedded country-name patterns (default)
  prose                 prose's statistical English NER model
  http://host/ents      NER sidecar returning {"ents": [...]}
  path/patterns.jsonl   spaCy EntityRuler patterns
  path/model-best       spaCy model directory with entity_ruler/patterns.jsonl,
                        or a prose model directory

The mapping table (--mapping) is a JSONL file with "pattern" and "ISO_Code"
fields, or a Geonames countryInfo.txt. The embedded table is used when unset.

Settings can also come from a YAML config file or GEOSTATE_* environment
variables, e.g. GEOSTATE_MODEL, GEOSTATE_MAPPING.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.readConfig(); err != nil {
				return err
			}
			l, err := newLogger(cmd.ErrOrStderr(), a.v.GetString("log-level"))
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ./"+defaultConfigFile+" if present)")
	pf.String("model", geostate.ModelBuiltin, "NER model location")
	pf.String("mapping", "", "mapping table file (JSONL or Geonames countryInfo.txt)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Int("suggest", 0, "suggest patterns within N edits for unmapped mentions (max 3)")
	for _, name := range []string{"config", "model", "mapping", "log-level", "suggest"} {
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(newDetectCmd(a), newServeCmd(a), newValidateCmd(a))
	return root
}

func newConfig() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GEOSTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("model", geostate.ModelBuiltin)
	v.SetDefault("mapping", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("addr", ":8080")
	v.SetDefault("suggest", 0)
	return v
}

// readConfig loads the config file named by --config, or ./geostate.yaml
// when it exists. Flags and environment variables take precedence.
func (a *app) readConfig() error {
	path := a.v.GetString("config")
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return nil
		}
		path = defaultConfigFile
	}
	a.v.SetConfigFile(path)
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

// loadTable loads the configured mapping table.
func (a *app) loadTable() (*geostate.Table, error) {
	path := a.v.GetString("mapping")
	var (
		t   *geostate.Table
		err error
	)
	switch {
	case path == "":
		t, err = geostate.DefaultTable()
	case strings.HasPrefix(filepath.Base(path), "countryInfo"):
		t, err = geostate.LoadCountryInfo(path)
	default:
		t, err = geostate.LoadTable(path)
	}
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, errors.New("mapping table is empty")
	}
	source := path
	if source == "" {
		source = "embedded"
	}
	a.log.Info("loaded mapping table", "source", source, "patterns", t.Len())
	return t, nil
}

// loadDetector loads the model and table. Any error is fatal to the command.
func (a *app) loadDetector(ctx context.Context) (*geostate.Detector, error) {
	table, err := a.loadTable()
	if err != nil {
		return nil, err
	}
	model, err := geostate.OpenModel(ctx, a.v.GetString("model"))
	if err != nil {
		return nil, err
	}
	a.log.Info("loaded model", "model", model.Name())

	return geostate.NewDetector(
		geostate.WithRecognizer(model),
		geostate.WithTable(table),
		geostate.WithLogger(a.log),
	)
}
