package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

// MemoryStore serves a fixed snapshot. It backs the one-shot CLI search and tests.
type MemoryStore struct {
	records []*models.CandidateRecord
	byID    map[string]*models.CandidateRecord
	pii     map[string]*models.PIIEnvelope
}

func NewMemoryStore(records []*models.CandidateRecord, pii []*models.PIIEnvelope) *MemoryStore {
	s := &MemoryStore{
		byID: make(map[string]*models.CandidateRecord, len(records)),
		pii:  make(map[string]*models.PIIEnvelope, len(pii)),
	}
	for _, r := range records {
		if r == nil {
			continue
		}
		s.records = append(s.records, r)
		s.byID[r.ID] = r
	}
	for _, p := range pii {
		if p != nil {
			s.pii[p.CandidateID] = p
		}
	}
	return s
}

// parsedResume is one entry of a parsed-resume export: the parser's sectioned output
// with an optional id.
type parsedResume struct {
	ID     string                 `json:"id"`
	Parsed map[string]interface{} `json:"parsed_data"`
}

// LoadParsedResumes reads a JSON array of parsed resumes and splits each into a
// record and its PII envelope. Entries without an id get a random one.
func LoadParsedResumes(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resumes %s: %w", path, err)
	}

	var entries []parsedResume
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse resumes %s: %w", path, err)
	}

	var (
		records []*models.CandidateRecord
		pii     []*models.PIIEnvelope
	)
	for i, e := range entries {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		rec, env, err := models.SplitPII(id, e.Parsed)
		if err != nil {
			return nil, fmt.Errorf("resume %d: %w", i, err)
		}
		records = append(records, rec)
		pii = append(pii, env)
	}
	return NewMemoryStore(records, pii), nil
}

func (s *MemoryStore) FetchCandidates(ctx context.Context, hints Hints) ([]*models.CandidateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelledError(err)
	}
	out := append([]*models.CandidateRecord(nil), s.records...)
	if hints.Limit > 0 && hints.Limit < len(out) {
		out = out[:hints.Limit]
	}
	return out, nil
}

func (s *MemoryStore) FetchCandidate(_ context.Context, id string) (*models.CandidateRecord, error) {
	if r, ok := s.byID[id]; ok {
		return r, nil
	}
	return nil, apperrors.NewCandidateNotFoundError(id)
}

func (s *MemoryStore) FetchPII(_ context.Context, id string) (*models.PIIEnvelope, error) {
	if p, ok := s.pii[id]; ok {
		cp := *p
		cp.Links = append([]string(nil), p.Links...)
		return &cp, nil
	}
	return nil, apperrors.NewCandidateNotFoundError(id)
}

func (s *MemoryStore) ListSkills(_ context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for _, r := range s.records {
		for _, sk := range r.Skills {
			seen[sk] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for sk := range seen {
		out = append(out, sk)
	}
	sort.Strings(out)
	return out, nil
}
