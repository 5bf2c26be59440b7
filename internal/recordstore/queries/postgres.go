package queries

// CandidateColumns is the PII-free projection of the resumes table, in scan order.
const CandidateColumns = `id, current_or_last_job_title, skills, tools_technologies, total_years_experience, ` +
	`location, state, country, companies_worked_at, education, certifications, employment_type, availability`

const (
	SelectCandidates    = `SELECT ` + CandidateColumns + ` FROM resumes ORDER BY id LIMIT $1`
	SelectCandidateByID = `SELECT ` + CandidateColumns + ` FROM resumes WHERE id = $1`

	SelectPII = `SELECT p.full_name, p.email, p.phone, p.address, r.linkedin_url ` +
		`FROM resumes_pii p JOIN resumes r ON r.id = p.resume_id WHERE p.resume_id = $1`

	SelectDistinctSkills = `SELECT DISTINCT lower(trim(s)) AS skill ` +
		`FROM resumes, unnest(coalesce(skills, '{}') || coalesce(tools_technologies, '{}')) AS s ` +
		`WHERE trim(s) <> '' ORDER BY skill`
)
