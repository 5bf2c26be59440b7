package queryinterpreter

// editDistance is the optimal string alignment distance: insertions, deletions,
// substitutions and adjacent transpositions each cost one.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[la][lb]
}

// fuzzyBudget is how many edits a token of length n may be away from a vocabulary term.
func fuzzyBudget(n int) int {
	switch {
	case n < 5:
		return 0
	case n < 8:
		return 1
	default:
		return 2
	}
}

// nearest returns the closest fuzzy-eligible skill surface form within budget.
// Ties go to the alphabetically first term.
func (v *Vocabulary) nearest(token string) (string, bool) {
	budget := fuzzyBudget(len(token))
	if budget == 0 {
		return "", false
	}
	best, bestDist := "", budget+1
	for _, term := range v.fuzzy {
		if abs(len(term)-len(token)) > budget {
			continue
		}
		if d := editDistance(token, term); d < bestDist {
			best, bestDist = term, d
		}
	}
	if best == "" {
		return "", false
	}
	return v.terms[kindSkill][best], true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
