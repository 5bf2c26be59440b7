package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/recordstore/queries"
)

// Indexer copies candidate records from a source store into the search index.
// Only CandidateDocument fields are written, so the index never holds PII.
type Indexer struct {
	source    Store
	client    *elasticsearch.Client
	index     string
	batchSize int
	logger    logger.Logger
}

func NewIndexer(source Store, client *elasticsearch.Client, index string, batchSize int, log logger.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Indexer{
		source:    source,
		client:    client,
		index:     index,
		batchSize: batchSize,
		logger:    logger.ForComponent(log, "indexer"),
	}
}

// IndexStats summarises one indexing run.
type IndexStats struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// EnsureIndex creates the candidate index with its mapping when it does not exist.
func (ix *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := ix.client.Indices.Exists([]string{ix.index}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", ix.index, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index %s: %s", ix.index, res.Status())
	}

	res, err = ix.client.Indices.Create(
		ix.index,
		ix.client.Indices.Create.WithBody(strings.NewReader(queries.CandidateMapping)),
		ix.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", ix.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", ix.index, res.String())
	}

	ix.logger.Info("Created candidate index", map[string]interface{}{"index": ix.index})
	return nil
}

// Run indexes the whole source snapshot in bulk batches.
func (ix *Indexer) Run(ctx context.Context) (IndexStats, error) {
	var stats IndexStats

	if err := ix.EnsureIndex(ctx); err != nil {
		return stats, err
	}

	records, err := ix.source.FetchCandidates(ctx, Hints{})
	if err != nil {
		return stats, err
	}

	for start := 0; start < len(records); start += ix.batchSize {
		end := min(start+ix.batchSize, len(records))

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, rec := range records[start:end] {
			meta := map[string]interface{}{
				"index": map[string]interface{}{"_index": ix.index, "_id": rec.ID},
			}
			if err := enc.Encode(meta); err != nil {
				return stats, fmt.Errorf("encode bulk meta: %w", err)
			}
			if err := enc.Encode(queries.DocumentFromRecord(rec)); err != nil {
				return stats, fmt.Errorf("encode bulk document: %w", err)
			}
		}

		ok, failed, err := ix.bulk(ctx, &buf)
		if err != nil {
			return stats, err
		}
		stats.Indexed += ok
		stats.Failed += failed
	}

	ix.logger.Info("Indexing finished", map[string]interface{}{
		"index":   ix.index,
		"indexed": stats.Indexed,
		"failed":  stats.Failed,
	})
	return stats, nil
}

func (ix *Indexer) bulk(ctx context.Context, body *bytes.Buffer) (int, int, error) {
	res, err := ix.client.Bulk(body, ix.client.Bulk.WithContext(ctx), ix.client.Bulk.WithIndex(ix.index))
	if err != nil {
		return 0, 0, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, 0, fmt.Errorf("bulk request failed: %s", res.String())
	}

	var r struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error,omitempty"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, 0, fmt.Errorf("decode bulk response: %w", err)
	}

	ok, failed := 0, 0
	for _, item := range r.Items {
		for _, result := range item {
			if result.Error != nil || result.Status >= 300 {
				failed++
				fields := map[string]interface{}{"candidateId": result.ID, "status": result.Status}
				if result.Error != nil {
					fields["reason"] = result.Error.Reason
				}
				ix.logger.Warn("Bulk index item failed", fields)
				continue
			}
			ok++
		}
	}
	return ok, failed, nil
}
