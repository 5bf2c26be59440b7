package queries

import (
	"encoding/json"
	"fmt"
	"io"
)

// SearchResult is the part of a search response the record store reads.
type SearchResult struct {
	TotalHits int64
	Documents []CandidateDocument
	Skills    []string
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string            `json:"_id"`
			Source CandidateDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		Skills struct {
			Buckets []struct {
				Key string `json:"key"`
			} `json:"buckets"`
		} `json:"skills"`
	} `json:"aggregations"`
}

// DecodeSearch parses a search response body. Hits without an id in their source
// take the document _id.
func DecodeSearch(body io.Reader) (*SearchResult, error) {
	var r searchResponse
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &SearchResult{TotalHits: r.Hits.Total.Value}
	for _, hit := range r.Hits.Hits {
		doc := hit.Source
		if doc.ID == "" {
			doc.ID = hit.ID
		}
		out.Documents = append(out.Documents, doc)
	}
	for _, b := range r.Aggregations.Skills.Buckets {
		out.Skills = append(out.Skills, b.Key)
	}
	return out, nil
}

// DecodeDocument parses a GET document response.
func DecodeDocument(body io.Reader) (*CandidateDocument, bool, error) {
	var r struct {
		ID     string            `json:"_id"`
		Found  bool              `json:"found"`
		Source CandidateDocument `json:"_source"`
	}
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return nil, false, fmt.Errorf("decode document: %w", err)
	}
	if !r.Found {
		return nil, false, nil
	}
	if r.Source.ID == "" {
		r.Source.ID = r.ID
	}
	return &r.Source, true, nil
}
