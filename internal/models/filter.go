package models

import (
	"sort"
	"strings"
)

// Dimension names one axis of a search intent.
type Dimension string

const (
	DimRequiredSkills    Dimension = "required_skills"
	DimPreferredSkills   Dimension = "preferred_skills"
	DimMinExperience     Dimension = "min_experience_years"
	DimMaxExperience     Dimension = "max_experience_years"
	DimExperience        Dimension = "experience"
	DimLocations         Dimension = "locations"
	DimTitleKeywords     Dimension = "title_keywords"
	DimExcludedCompanies Dimension = "excluded_companies"
	DimAvailability      Dimension = "availability"
	DimEmploymentType    Dimension = "employment_type"
)

// FilterModel is the structured recruiter intent. Every dimension is optional; a nil
// pointer or empty set means unconstrained. Set dimensions are kept sorted and lowercase.
type FilterModel struct {
	RequiredSkills     []string      `json:"requiredSkills,omitempty"`
	PreferredSkills    []string      `json:"preferredSkills,omitempty"`
	MinExperienceYears *int          `json:"minExperienceYears,omitempty"`
	MaxExperienceYears *int          `json:"maxExperienceYears,omitempty"`
	Locations          []string      `json:"locations,omitempty"`
	TitleKeywords      []string      `json:"titleKeywords,omitempty"`
	ExcludedCompanies  []string      `json:"excludedCompanies,omitempty"`
	Availability       *Availability `json:"availability,omitempty"`
	EmploymentType     *string       `json:"employmentType,omitempty"`
}

// FilterDelta is what one turn adds to the session filter. Reset discards the prior
// filter before Changes are applied. Cleared opens scalar dimensions the turn
// explicitly lifts; a value set in Changes for the same dimension wins.
type FilterDelta struct {
	Changes FilterModel `json:"changes"`
	Cleared []Dimension `json:"cleared,omitempty"`
	Reset   bool        `json:"reset,omitempty"`
}

// IsEmpty reports whether no dimension is constrained.
func (f FilterModel) IsEmpty() bool {
	return len(f.RequiredSkills) == 0 &&
		len(f.PreferredSkills) == 0 &&
		f.MinExperienceYears == nil &&
		f.MaxExperienceYears == nil &&
		len(f.Locations) == 0 &&
		len(f.TitleKeywords) == 0 &&
		len(f.ExcludedCompanies) == 0 &&
		f.Availability == nil &&
		f.EmploymentType == nil
}

// IsEmpty reports whether applying d would change nothing.
func (d FilterDelta) IsEmpty() bool {
	return !d.Reset && len(d.Cleared) == 0 && d.Changes.IsEmpty()
}

// Merge applies d on top of f and returns a new FilterModel; f is left untouched.
// Scalars are overridden only when d sets or clears them, sets are unioned. Without
// Reset or Cleared the result never loses a constraint f already had.
func (f FilterModel) Merge(d FilterDelta) FilterModel {
	base := f
	if d.Reset {
		base = FilterModel{}
	}
	c := d.Changes

	out := FilterModel{
		RequiredSkills:     unionSets(base.RequiredSkills, c.RequiredSkills),
		PreferredSkills:    unionSets(base.PreferredSkills, c.PreferredSkills),
		MinExperienceYears: pickInt(c.MinExperienceYears, base.MinExperienceYears),
		MaxExperienceYears: pickInt(c.MaxExperienceYears, base.MaxExperienceYears),
		Locations:          unionSets(base.Locations, c.Locations),
		TitleKeywords:      unionSets(base.TitleKeywords, c.TitleKeywords),
		ExcludedCompanies:  unionSets(base.ExcludedCompanies, c.ExcludedCompanies),
		Availability:       base.Availability,
		EmploymentType:     base.EmploymentType,
	}
	if c.Availability != nil {
		a := *c.Availability
		out.Availability = &a
	} else if out.Availability != nil {
		a := *out.Availability
		out.Availability = &a
	}
	if c.EmploymentType != nil {
		e := *c.EmploymentType
		out.EmploymentType = &e
	} else if out.EmploymentType != nil {
		e := *out.EmploymentType
		out.EmploymentType = &e
	}

	for _, dim := range d.Cleared {
		switch dim {
		case DimMinExperience:
			if c.MinExperienceYears == nil {
				out.MinExperienceYears = nil
			}
		case DimMaxExperience:
			if c.MaxExperienceYears == nil {
				out.MaxExperienceYears = nil
			}
		case DimAvailability:
			if c.Availability == nil {
				out.Availability = nil
			}
		case DimEmploymentType:
			if c.EmploymentType == nil {
				out.EmploymentType = nil
			}
		}
	}

	return out
}

// Clone returns a deep copy.
func (f FilterModel) Clone() FilterModel {
	return FilterModel{}.Merge(FilterDelta{Changes: f})
}

// ConstrainedDimensions lists the dimensions f constrains, in a stable order.
func (f FilterModel) ConstrainedDimensions() []Dimension {
	var dims []Dimension
	if len(f.RequiredSkills) > 0 {
		dims = append(dims, DimRequiredSkills)
	}
	if len(f.PreferredSkills) > 0 {
		dims = append(dims, DimPreferredSkills)
	}
	if f.MinExperienceYears != nil {
		dims = append(dims, DimMinExperience)
	}
	if f.MaxExperienceYears != nil {
		dims = append(dims, DimMaxExperience)
	}
	if len(f.Locations) > 0 {
		dims = append(dims, DimLocations)
	}
	if len(f.TitleKeywords) > 0 {
		dims = append(dims, DimTitleKeywords)
	}
	if len(f.ExcludedCompanies) > 0 {
		dims = append(dims, DimExcludedCompanies)
	}
	if f.Availability != nil {
		dims = append(dims, DimAvailability)
	}
	if f.EmploymentType != nil {
		dims = append(dims, DimEmploymentType)
	}
	return dims
}

// IntPtr is a small helper for optional int dimensions.
func IntPtr(v int) *int {
	return &v
}

func StringPtr(v string) *string {
	return &v
}

func AvailabilityPtr(v Availability) *Availability {
	return &v
}

func pickInt(override, fallback *int) *int {
	if override != nil {
		v := *override
		return &v
	}
	if fallback != nil {
		v := *fallback
		return &v
	}
	return nil
}

// unionSets lowercases, dedupes and sorts the union of a and b.
func unionSets(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
