package main

import (
	"github.com/spf13/cobra"

	"github.com/nadhanasaripv257/skillq-app/internal/recordstore"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Copy candidates from Postgres into the search index",
	Long:  "Reads every resume row from Postgres and bulk-indexes its PII-free document into the Elasticsearch candidate index, creating the index when missing.",
	RunE:  runIndex,
}

var indexBatchSize int

func init() {
	indexCmd.Flags().IntVarP(&indexBatchSize, "batch-size", "b", 500, "Documents per bulk request")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	pg, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pg.Close()

	es, err := connectElasticsearch(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer es.Close()

	source := recordstore.NewPostgresStore(pg.DB, cfg.RecordStore.MaxFetch, log)
	stats, err := recordstore.NewIndexer(source, es.Client, cfg.RecordStore.Index, indexBatchSize, log).Run(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), stats)
}
