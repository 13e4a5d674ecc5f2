package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/internal/store"
)

var (
	enrichName      string
	enrichIMDbID    string
	enrichID        int64
	enrichBirthYear int
	enrichDeathYear int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a single subject",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		subj := model.Subject{
			ID:     enrichID,
			IMDbID: enrichIMDbID,
			Name:   enrichName,
		}
		if enrichBirthYear > 0 {
			subj.BirthYear = &enrichBirthYear
		}
		if enrichDeathYear > 0 {
			subj.DeathYear = &enrichDeathYear
		}

		run, err := env.Coordinator.Enrich(ctx, subj)
		if err != nil {
			return eris.Wrap(err, "enrich subject")
		}

		if err := persistRun(ctx, env.Store, run); err != nil {
			return err
		}

		zap.L().Info("enrichment complete",
			zap.String("run_id", run.ID),
			zap.String("subject", subj.Name),
			zap.String("status", string(run.Status)),
			zap.Int("sources_ok", run.Result.SourcesOK),
			zap.Float64("cost_usd", run.Result.TotalCostUSD),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichName, "name", "", "subject name (required)")
	enrichCmd.Flags().StringVar(&enrichIMDbID, "imdb-id", "", "IMDb name ID (e.g. nm0001595)")
	enrichCmd.Flags().Int64Var(&enrichID, "id", 0, "internal subject ID")
	enrichCmd.Flags().IntVar(&enrichBirthYear, "birth-year", 0, "known birth year")
	enrichCmd.Flags().IntVar(&enrichDeathYear, "death-year", 0, "known death year")
	_ = enrichCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(enrichCmd)
}

// persistRun saves a run and its provenance rows.
func persistRun(ctx context.Context, st store.Store, run *model.Run) error {
	if err := st.SaveRun(ctx, run); err != nil {
		return eris.Wrap(err, "save run")
	}
	if run.Result != nil && len(run.Result.Sources) > 0 {
		if err := st.InsertSourceEntries(ctx, run.ID, run.Result.Sources); err != nil {
			return eris.Wrap(err, "insert source entries")
		}
	}
	return nil
}
