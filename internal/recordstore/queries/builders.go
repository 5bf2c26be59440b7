package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

var ErrMissingIndex = errors.New("index name is required")

// CandidateMapping is the index mapping for CandidateDocument.
const CandidateMapping = `{
  "mappings": {
    "properties": {
      "id":               {"type": "keyword"},
      "title":            {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "skills":           {"type": "keyword"},
      "experience_years": {"type": "integer"},
      "location":         {"type": "text"},
      "region_code":      {"type": "keyword"},
      "companies":        {"type": "keyword"},
      "education":        {"type": "text"},
      "certifications":   {"type": "text"},
      "employment_type":  {"type": "keyword"},
      "availability":     {"type": "keyword"}
    }
  }
}`

// CandidateDocument is the indexed form of a CandidateRecord. It has no PII fields.
type CandidateDocument struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
	Location        string   `json:"location,omitempty"`
	RegionCode      string   `json:"region_code,omitempty"`
	Companies       []string `json:"companies,omitempty"`
	Education       []string `json:"education,omitempty"`
	Certifications  []string `json:"certifications,omitempty"`
	EmploymentType  string   `json:"employment_type,omitempty"`
	Availability    string   `json:"availability,omitempty"`
}

func DocumentFromRecord(r *models.CandidateRecord) CandidateDocument {
	return CandidateDocument{
		ID:              r.ID,
		Title:           r.Title,
		Skills:          r.Skills,
		ExperienceYears: r.ExperienceYears,
		Location:        r.Location.Text,
		RegionCode:      r.Location.RegionCode,
		Companies:       r.Companies,
		Education:       r.Education,
		Certifications:  r.Certifications,
		EmploymentType:  r.EmploymentType,
		Availability:    string(r.Availability),
	}
}

// Record returns the unvalidated record; callers run it through models.NewCandidateRecord.
func (d CandidateDocument) Record() models.CandidateRecord {
	return models.CandidateRecord{
		ID:              d.ID,
		Title:           d.Title,
		Skills:          d.Skills,
		ExperienceYears: d.ExperienceYears,
		Location:        models.Location{Text: d.Location, RegionCode: d.RegionCode},
		Companies:       d.Companies,
		Education:       d.Education,
		Certifications:  d.Certifications,
		EmploymentType:  d.EmploymentType,
		Availability:    models.ParseAvailability(d.Availability),
	}
}

// CandidateSearch describes one snapshot fetch.
type CandidateSearch struct {
	Index     string
	Skills    []string
	Titles    []string
	Locations []string
	Size      int
}

// BuildCandidateSearch builds a search that returns every document but boosts those
// matching the hints, so a capped fetch keeps the most relevant candidates.
func BuildCandidateSearch(cs CandidateSearch) (*esapi.SearchRequest, error) {
	if cs.Index == "" {
		return nil, ErrMissingIndex
	}

	body, err := json.Marshal(buildHintQuery(cs))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	size := cs.Size
	return &esapi.SearchRequest{
		Index: []string{cs.Index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}, nil
}

func buildHintQuery(cs CandidateSearch) map[string]interface{} {
	shouldClauses := []interface{}{}

	if len(cs.Skills) > 0 {
		shouldClauses = append(shouldClauses, map[string]interface{}{
			"terms": map[string]interface{}{
				"skills": cs.Skills,
				"boost":  3,
			},
		})
	}
	for _, title := range cs.Titles {
		shouldClauses = append(shouldClauses, map[string]interface{}{
			"match": map[string]interface{}{
				"title": map[string]interface{}{"query": title, "boost": 2},
			},
		})
	}
	for _, loc := range cs.Locations {
		shouldClauses = append(shouldClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  loc,
				"fields": []string{"location", "region_code"},
			},
		})
	}

	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{"match_all": map[string]interface{}{}},
		},
	}
	if len(shouldClauses) > 0 {
		boolQuery["should"] = shouldClauses
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort":  []interface{}{"_score", map[string]interface{}{"id": "asc"}},
	}
}

// BuildSkillAggregation lists distinct skills without returning documents.
func BuildSkillAggregation(index string, size int) (*esapi.SearchRequest, error) {
	if index == "" {
		return nil, ErrMissingIndex
	}
	body, err := json.Marshal(map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			"skills": map[string]interface{}{
				"terms": map[string]interface{}{"field": "skills", "size": size},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal aggregation body: %w", err)
	}
	zero := 0
	return &esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
		Size:  &zero,
	}, nil
}
