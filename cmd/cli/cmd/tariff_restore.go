// Package cmd - CLI command: motor-tariff tariff restore
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"motor-tariff/core/tariff"
	"motor-tariff/db/ingestion"
)

var tariffRestoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Restore a tariff table from an import backup",
	Long: `Restore a tariff table from a local backup file.

This command:
  1. Reads the backup file (gzipped JSON)
  2. Verifies the content hash
  3. Runs the same validation contract as import
  4. Stores it, under --version when given, as a NEW table
  5. Optionally activates it

Stored tables are never overwritten: restoring a version that already
exists fails unless --version names a new one.`,
	Args: cobra.ExactArgs(1),
	RunE: runTariffRestore,
}

var (
	restoreVersion  int
	restoreDryRun   bool
	restoreActivate bool
)

func init() {
	tariffCmd.AddCommand(tariffRestoreCmd)

	tariffRestoreCmd.Flags().IntVar(&restoreVersion, "version", 0, "store under this version instead of the backup's")
	tariffRestoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "validate only, no writes")
	tariffRestoreCmd.Flags().BoolVar(&restoreActivate, "activate", false, "activate the restored table")
	tariffRestoreCmd.Flags().BoolVar(&importLenient, "lenient", false, "accept incomplete tables")
}

// reversion rebuilds t under a new version. The content hash changes with it.
func reversion(t *tariff.Table, version int) (*tariff.Table, error) {
	b := tariff.NewBuilder(version).
		WithSource(tariff.SourceBackup).
		WithEffectiveAt(t.EffectiveAt)
	for _, e := range t.Entries() {
		b.AddRow(e.Key, e.Row)
	}
	return b.Build()
}

func runTariffRestore(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	t, err := ingestion.NewBackupManager().ReadBackup(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "backup: %s (v%d, %d rows, %s)\n", args[0], t.Version, t.Len(), t.ContentHash.Short())

	if restoreVersion > 0 && restoreVersion != t.Version {
		if t, err = reversion(t, restoreVersion); err != nil {
			return err
		}
		fmt.Fprintf(w, "restoring as v%d (%s)\n", t.Version, t.ContentHash.Short())
	}

	res := ingestion.NewValidator(contract()).Validate(t)
	printValidation(w, res)
	if !res.IsValid {
		return fmt.Errorf("backup v%d failed validation", t.Version)
	}
	if restoreDryRun {
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()
	store, closeStore, err := openPricingStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Create(ctx, t); err != nil {
		return err
	}
	fmt.Fprintf(w, "stored %s\n", t.ID)
	if !restoreActivate {
		return nil
	}
	if err := store.Activate(ctx, t.ID); err != nil {
		return err
	}
	fmt.Fprintf(w, "activated %s\n", t.ID)

	ann, closeAnn := announcer()
	defer closeAnn()
	if ann != nil {
		return ann.Announce(ctx, t)
	}
	return nil
}
