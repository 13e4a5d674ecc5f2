package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deadonfilm/enrich/internal/model"
)

var (
	batchFile  string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch enrich subjects from a CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		subjects, err := readSubjectsCSV(batchFile)
		if err != nil {
			return err
		}
		if len(subjects) == 0 {
			zap.L().Info("no subjects in input file")
			return nil
		}
		if batchLimit > 0 && len(subjects) > batchLimit {
			subjects = subjects[:batchLimit]
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("processing batch",
			zap.Int("subjects", len(subjects)),
			zap.Int("concurrency", cfg.Batch.MaxConcurrentSubjects),
		)

		runs, batchErr := env.Coordinator.EnrichBatch(ctx, subjects)

		// Persist whatever finished, even on a cancelled batch.
		var enriched, failed int
		for _, run := range runs {
			if run == nil {
				continue
			}
			if err := persistRun(context.WithoutCancel(ctx), env.Store, run); err != nil {
				zap.L().Error("persist run failed",
					zap.String("run_id", run.ID), zap.Error(err))
				continue
			}
			if run.Result != nil && run.Result.Enriched {
				enriched++
			} else {
				failed++
			}
		}

		progress := env.Coordinator.Progress()
		zap.L().Info("batch complete",
			zap.Int("enriched", enriched),
			zap.Int("failed", failed),
			zap.Float64("total_cost_usd", progress.TotalCostUSD),
		)

		if batchErr != nil {
			return eris.Wrap(batchErr, "batch enrichment")
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "CSV of subjects: name,imdb_id,birth_year,death_year (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of subjects to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// readSubjectsCSV parses a subjects file. The first column is the name and
// is required; imdb_id, birth_year, and death_year follow and may be blank.
// A header row is detected by a non-numeric year column on the first line.
func readSubjectsCSV(path string) ([]model.Subject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var subjects []model.Subject
	var id int64
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "parse %s", path)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(subjects) == 0 && id == 0 && looksLikeHeader(record) {
			continue
		}

		id++
		subj := model.Subject{ID: id, Name: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			subj.IMDbID = strings.TrimSpace(record[1])
		}
		if y := parseYear(record, 2); y != nil {
			subj.BirthYear = y
		}
		if y := parseYear(record, 3); y != nil {
			subj.DeathYear = y
		}
		subjects = append(subjects, subj)
	}
	return subjects, nil
}

func looksLikeHeader(record []string) bool {
	return strings.EqualFold(strings.TrimSpace(record[0]), "name")
}

func parseYear(record []string, idx int) *int {
	if idx >= len(record) {
		return nil
	}
	y, err := strconv.Atoi(strings.TrimSpace(record[idx]))
	if err != nil || y <= 0 {
		return nil
	}
	return &y
}
