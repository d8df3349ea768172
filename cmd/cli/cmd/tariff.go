// Package cmd - Operator commands for tariff tables.
// Tables only reach the database through import or restore.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"motor-tariff/adapters/hclfile"
	"motor-tariff/core/output"
	"motor-tariff/core/tariff"
	"motor-tariff/db/ingestion"
)

var tariffCmd = &cobra.Command{
	Use:   "tariff",
	Short: "Tariff table management (operator only)",
	Long: `Tariff table management commands.

IMPORTANT: import, restore and activate change the table every server prices with.
Never run them automatically from CI/CD pipelines.`,
}

var tariffValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate sheet exports or an HCL tariff file without writing anything",
	Args:  cobra.NoArgs,
	RunE:  runTariffValidate,
}

var tariffImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import sheet exports as a new table version",
	Long: `Import the internal and border sheet exports as a new table version.

The run is strictly ordered:
  1. PARSE     - read both CSV exports (no writes)
  2. VALIDATE  - coverage and consistency contract (no writes)
  3. BACKUP    - gzip JSON copy of the table
  4. COMMIT    - one transaction per table
  5. ACTIVATE  - optional, then announced to running servers

A table that fails validation is never written.`,
	Args: cobra.NoArgs,
	RunE: runTariffImport,
}

var tariffShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a tariff table",
	Args:  cobra.NoArgs,
	RunE:  runTariffShow,
}

var tariffListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored table versions",
	Args:  cobra.NoArgs,
	RunE:  runTariffList,
}

var tariffActivateCmd = &cobra.Command{
	Use:   "activate <table-id>",
	Short: "Make a stored table the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runTariffActivate,
}

var tariffExportCmd = &cobra.Command{
	Use:   "export <file.hcl>",
	Short: "Write a table as an HCL tariff file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTariffExport,
}

var (
	importInternal    string
	importBorder      string
	importVersion     int
	importEffective   string
	importDryRun      bool
	importActivate    bool
	importBackupDir   string
	importLenient     bool
	importStrictTotal bool
	importConfirm     bool
	importTimeout     time.Duration

	showRows   bool
	showFormat string
)

func init() {
	rootCmd.AddCommand(tariffCmd)
	tariffCmd.AddCommand(tariffValidateCmd, tariffImportCmd, tariffShowCmd, tariffListCmd, tariffActivateCmd, tariffExportCmd)

	for _, c := range []*cobra.Command{tariffValidateCmd, tariffImportCmd} {
		c.Flags().StringVar(&importInternal, "internal", "", "internal sheet export (CSV)")
		c.Flags().StringVar(&importBorder, "border", "", "border sheet export (CSV)")
		c.Flags().IntVar(&importVersion, "version", 0, "table version")
		c.Flags().StringVar(&importEffective, "effective", "", "effective date (YYYY-MM-DD or RFC3339, default now)")
		c.Flags().BoolVar(&importLenient, "lenient", false, "accept incomplete tables")
		c.Flags().BoolVar(&importStrictTotal, "reject-inconsistent", false, "reject rows whose total disagrees with their components")
	}
	tariffValidateCmd.Flags().StringVar(&tableFile, "tariff", "", "HCL tariff file to validate instead of CSV exports")

	tariffImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate only, no writes")
	tariffImportCmd.Flags().BoolVar(&importActivate, "activate", false, "activate the table after commit")
	tariffImportCmd.Flags().StringVarP(&importBackupDir, "output-dir", "o", "./tariff-backups", "directory for backup files")
	tariffImportCmd.Flags().BoolVar(&importConfirm, "confirm", false, "skip the interactive activation prompt")
	tariffImportCmd.Flags().DurationVar(&importTimeout, "timeout", 5*time.Minute, "timeout for the run")
	tariffImportCmd.MarkFlagRequired("version")

	tariffShowCmd.Flags().BoolVar(&showRows, "rows", false, "print every row")
	tariffShowCmd.Flags().StringVarP(&showFormat, "format", "f", "cli", "output format (cli, json, markdown)")
	addTableSourceFlags(tariffShowCmd)
	addTableSourceFlags(tariffExportCmd)
}

func contract() ingestion.Contract {
	c := ingestion.DefaultContract()
	if importLenient {
		c.RequireComplete = false
		c.MinInternalRows = 0
		c.MinBorderRows = 0
	}
	c.RejectInconsistent = importStrictTotal
	return c
}

func parseEffective(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid effective date %q", s)
}

// openSources opens the CSV exports. The returned func closes them.
func openSources() (ingestion.Sources, func(), error) {
	var src ingestion.Sources
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	if importInternal == "" && importBorder == "" {
		return src, closeAll, fmt.Errorf("at least one of --internal and --border is required")
	}
	for _, p := range []struct {
		path string
		dst  *io.Reader
	}{
		{importInternal, &src.Internal},
		{importBorder, &src.Border},
	} {
		if p.path == "" {
			continue
		}
		f, err := os.Open(p.path)
		if err != nil {
			closeAll()
			return src, func() {}, err
		}
		files = append(files, f)
		*p.dst = f
	}
	return src, closeAll, nil
}

func runTariffValidate(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	var t *tariff.Table
	if tableFile != "" {
		var err error
		if t, err = hclfile.NewReader().ReadFile(tableFile); err != nil {
			return err
		}
	} else {
		effective, err := parseEffective(importEffective)
		if err != nil {
			return err
		}
		version := importVersion
		if version <= 0 {
			version = 1
		}
		src, closeSources, err := openSources()
		if err != nil {
			return err
		}
		defer closeSources()

		var issues []ingestion.Issue
		t, issues, err = ingestion.BuildTable(src, version, effective)
		for _, is := range issues {
			fmt.Fprintf(w, "skipped: %s\n", is)
		}
		if err != nil {
			return err
		}
	}

	res := ingestion.NewValidator(contract()).Validate(t)
	printValidation(w, res)
	if !res.IsValid {
		return fmt.Errorf("table v%d failed validation", t.Version)
	}
	fmt.Fprintf(w, "table v%d is valid (%s)\n", t.Version, t.ContentHash.Short())
	return nil
}

func printValidation(w io.Writer, res *ingestion.ValidationResult) {
	fmt.Fprintf(w, "internal rows: %d\nborder rows:   %d\nvalid:         %s\n",
		res.InternalRows, res.BorderRows, yesNo(res.IsValid))
	if len(res.Errors) > 0 {
		fmt.Fprintf(w, "errors:\n  %s\n", joinLines(res.Errors))
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "warnings:\n  %s\n", joinLines(res.Warnings))
	}
}

func runTariffImport(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	effective, err := parseEffective(importEffective)
	if err != nil {
		return err
	}

	if importActivate && !importDryRun && !importConfirm {
		fmt.Fprintf(w, "You are about to activate tariff table v%d for every server.\n", importVersion)
		fmt.Fprint(w, "Type 'yes' to confirm: ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
	}

	src, closeSources, err := openSources()
	if err != nil {
		return err
	}
	defer closeSources()

	ctx, cancel := context.WithTimeout(cmd.Context(), importTimeout)
	defer cancel()

	var committer ingestion.Committer = dryRunCommitter{}
	if !importDryRun {
		store, closeStore, err := openPricingStore(ctx)
		if err != nil {
			return fmt.Errorf("database connection required: %w", err)
		}
		defer closeStore()
		committer = store
	}
	ann, closeAnn := announcer()
	defer closeAnn()

	backupDir := importBackupDir
	if importDryRun {
		backupDir = ""
	}
	pipeline := ingestion.NewPipeline(committer, ann, contract(), backupDir)
	res, err := pipeline.Import(ctx, src, ingestion.Options{
		Version:     importVersion,
		EffectiveAt: effective,
		DryRun:      importDryRun,
		Activate:    importActivate,
	})
	if res != nil {
		for _, is := range res.Issues {
			fmt.Fprintf(w, "skipped: %s\n", is)
		}
		if res.Validation != nil {
			printValidation(w, res.Validation)
		}
		fmt.Fprintf(w, "run:    %s\nstatus: %s\n", res.RunID, res.Status)
		if res.BackupPath != "" {
			fmt.Fprintf(w, "backup: %s\n", res.BackupPath)
		}
		if res.Table != nil {
			fmt.Fprintf(w, "table:  %s (v%d, %d rows)\n", res.Table.ID, res.Table.Version, res.Table.Len())
		}
	}
	return err
}

// dryRunCommitter is never reached: dry runs stop after validation
type dryRunCommitter struct{}

func (dryRunCommitter) Create(context.Context, *tariff.Table) error {
	return fmt.Errorf("dry run: no database configured")
}

func (dryRunCommitter) Activate(context.Context, tariff.TableID) error {
	return fmt.Errorf("dry run: no database configured")
}

func runTariffShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(showFormat)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	t, err := loadTable(ctx)
	if err != nil {
		return err
	}
	return output.New(format).RenderTable(cmd.OutOrStdout(), t, showRows)
}

func runTariffList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	store, closeStore, err := openPricingStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	infos, err := store.ListVersions(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tID\tSOURCE\tEFFECTIVE\tACTIVE")
	for _, i := range infos {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i.Version, i.ID, i.Source, i.EffectiveAt.Format("2006-01-02"), yesNo(i.Active))
	}
	return tw.Flush()
}

func runTariffActivate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	store, closeStore, err := openPricingStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	id := tariff.TableID(args[0])
	if err := store.Activate(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "activated %s\n", id)

	ann, closeAnn := announcer()
	defer closeAnn()
	if ann == nil {
		return nil
	}
	t, err := store.Table(ctx, id)
	if err != nil {
		return err
	}
	return ann.Announce(ctx, t)
}

func runTariffExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	t, err := loadTable(ctx)
	if err != nil {
		return err
	}
	if err := hclfile.WriteFile(args[0], t); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote table v%d (%d rows) to %s\n", t.Version, t.Len(), args[0])
	return nil
}
