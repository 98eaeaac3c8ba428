// Package match decides whether a page body satisfies its required patterns.
package match

import "regexp"

// Hit is a pattern found in the body.
type Hit struct {
	Pattern string
	Offset  int
	Text    string
}

// Result holds the outcome of matching one body against a pattern set.
type Result struct {
	Satisfied bool
	Missing   []string // patterns not found, in configured order
	Hits      []Hit
}

// Match searches body for every pattern. All patterns must be found anywhere
// in the body for the result to be satisfied; an empty set always is.
func Match(body string, patterns []*regexp.Regexp) Result {
	res := Result{Satisfied: true}
	for _, re := range patterns {
		loc := re.FindStringIndex(body)
		if loc == nil {
			res.Satisfied = false
			res.Missing = append(res.Missing, re.String())
			continue
		}
		res.Hits = append(res.Hits, Hit{
			Pattern: re.String(),
			Offset:  loc[0],
			Text:    body[loc[0]:loc[1]],
		})
	}
	return res
}
