package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"motor-tariff/adapters/hclfile"
	"motor-tariff/core/input"
	"motor-tariff/core/output"
	"motor-tariff/core/quote"
	"motor-tariff/core/tariff"
	"motor-tariff/db/ingestion"
	"motor-tariff/internal/config"
)

var (
	quoteType           string
	quoteVehicleCode    string
	quoteCategory       string
	quoteClassification string
	quoteMonths         int
	quoteBorderType     string
	quoteVariant        string
	quoteElectronicCard bool
	quotePremium        bool
	quoteRescue         bool
	quoteFormat         string

	// shared by quote and tariff show
	tableFile   string
	tableBackup string
)

// quoteCmd prices one request against a tariff table
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Calculate an insurance premium",
	Long: `Calculate a premium breakdown.

The tariff table is read from --tariff (HCL file), --backup (import backup)
or, when neither is given, the active table in the configured database.

Examples:
  motor-tariff quote --tariff tariff.hcl --type internal --vehicle-code 05 --category 02 --months 6 --electronic-card
  motor-tariff quote --type border --border-type bus --months 3 --format markdown`,
	Args: cobra.NoArgs,
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	f := quoteCmd.Flags()
	f.StringVarP(&quoteType, "type", "t", "internal", "insurance type (internal, border)")
	f.StringVar(&quoteVehicleCode, "vehicle-code", "", "internal vehicle base type (01..34)")
	f.StringVar(&quoteCategory, "category", "", "internal vehicle category (01..04)")
	f.StringVar(&quoteClassification, "classification", "0", "government classification tier (0..3)")
	f.IntVarP(&quoteMonths, "months", "m", 12, "policy duration in months")
	f.StringVar(&quoteBorderType, "border-type", "", "border vehicle type (tourist, motorcycle, bus, other)")
	f.StringVar(&quoteVariant, "variant", "", "tariff row variant")
	f.BoolVar(&quoteElectronicCard, "electronic-card", false, "add the electronic card service")
	f.BoolVar(&quotePremium, "premium-service", false, "add the premium service")
	f.BoolVar(&quoteRescue, "rescue-service", false, "add the rescue service")
	f.StringVarP(&quoteFormat, "format", "f", "cli", "output format (cli, json, markdown)")
	addTableSourceFlags(quoteCmd)
}

func addTableSourceFlags(c *cobra.Command) {
	c.Flags().StringVar(&tableFile, "tariff", "", "HCL tariff file")
	c.Flags().StringVar(&tableBackup, "backup", "", "import backup file (.json.gz)")
	c.MarkFlagsMutuallyExclusive("tariff", "backup")
}

func runQuote(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(quoteFormat)
	if err != nil {
		return err
	}
	cfg := config.Get()

	months := quoteMonths
	req := input.Request{
		InsuranceType:     quoteType,
		VehicleCode:       quoteVehicleCode,
		Category:          quoteCategory,
		Classification:    quoteClassification,
		Months:            &months,
		BorderVehicleType: quoteBorderType,
		Variant:           quoteVariant,
		ElectronicCard:    &quoteElectronicCard,
		PremiumService:    &quotePremium,
		RescueService:     &quoteRescue,
	}
	in, err := input.NewNormalizer(cfg.Tariff.InternalMonths, cfg.Tariff.BorderMonths).Normalize(req)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	t, err := loadTable(ctx)
	if err != nil {
		return err
	}

	engine := quote.NewEngine(tariff.NewHolder(), quote.Config{Fees: cfg.Fees})
	q, err := engine.Price(t, in)
	if err != nil {
		return err
	}
	return output.New(format).RenderQuote(cmd.OutOrStdout(), q)
}

// loadTable reads the table named by --tariff or --backup, else the active database table
func loadTable(ctx context.Context) (*tariff.Table, error) {
	switch {
	case tableFile != "":
		return hclfile.NewReader().ReadFile(tableFile)
	case tableBackup != "":
		return ingestion.NewBackupManager().ReadBackup(tableBackup)
	case config.Get().Tariff.File != "" && config.Get().Database.DSN == "":
		return hclfile.NewReader().ReadFile(config.Get().Tariff.File)
	}

	store, closeStore, err := openPricingStore(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return store.ActiveTable(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n  ")
}
