package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nadhanasaripv257/skillq-app/internal/common/config"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	rankingsession "github.com/nadhanasaripv257/skillq-app/internal/matching/ranking-session"
	"github.com/nadhanasaripv257/skillq-app/internal/recordstore"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]...",
	Short: "Run a search session from the command line",
	Long:  "Runs each argument as one turn of a single session and prints the final turn as JSON. With --resumes the candidates come from a parsed-resume export instead of the configured store.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var (
	searchResumes string
	searchLimit   int
)

func init() {
	searchCmd.Flags().StringVarP(&searchResumes, "resumes", "r", "", "Path to a JSON array of parsed resumes")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results to print")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		cfg   *config.Config
		store recordstore.Store
		log   logger.Logger
	)
	if searchResumes != "" {
		mem, err := recordstore.LoadParsedResumes(searchResumes)
		if err != nil {
			return err
		}
		store = mem
		log = logger.NewNoOpLogger()
		cfg = config.Defaults()
	} else {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		log = newLogger(cfg)
		var conns *backends
		store, conns, err = openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer conns.close()
	}

	res, err := search(ctx, cfg, store, log, args, searchLimit)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

// search runs queries as successive turns of one session and returns the last result.
func search(ctx context.Context, cfg *config.Config, store recordstore.Store, log logger.Logger, queries []string, limit int) (*rankingsession.TurnResult, error) {
	interpreter, err := buildInterpreter(ctx, cfg, store, log)
	if err != nil {
		return nil, err
	}
	ranker, err := buildRanker(cfg, log)
	if err != nil {
		return nil, err
	}

	sessionCfg := rankingsession.DefaultConfig()
	sessionCfg.MaxResults = limit
	manager, err := rankingsession.NewManager(sessionCfg, rankingsession.Dependencies{
		Store:       store,
		Interpreter: interpreter,
		Ranker:      ranker,
	}, log)
	if err != nil {
		return nil, err
	}

	id := manager.Start()
	defer func() { _ = manager.Close(ctx, id) }()

	var last *rankingsession.TurnResult
	for _, q := range queries {
		last, err = manager.SubmitTurn(ctx, id, q)
		if err != nil {
			return nil, fmt.Errorf("turn %q: %w", q, err)
		}
	}
	return last, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
