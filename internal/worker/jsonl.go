package worker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gyeh/cbgtariff/internal/adjudicate"
)

// maxLineBytes bounds one JSONL claim line.
const maxLineBytes = 1 << 20

// Claim is one input line. ParseErr is set when the line is not a valid
// claim object; the line is still reported in the output.
type Claim struct {
	Line     int
	ClaimID  string
	Request  adjudicate.Request
	ParseErr error
}

// Result is one output line.
type Result struct {
	Line     int                  `json:"line"`
	ClaimID  string               `json:"claim_id,omitempty"`
	Response *adjudicate.Response `json:"response,omitempty"`
	Error    string               `json:"error,omitempty"`
}

type claimLine struct {
	ClaimID string `json:"claim_id"`
	adjudicate.Request
}

// ReadClaims parses JSON Lines input. Blank lines are skipped.
func ReadClaims(r io.Reader) ([]Claim, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var claims []Claim
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var cl claimLine
		c := Claim{Line: line}
		if err := json.Unmarshal([]byte(text), &cl); err != nil {
			c.ParseErr = fmt.Errorf("line %d: invalid claim: %w", line, err)
		} else {
			c.ClaimID = cl.ClaimID
			c.Request = cl.Request
		}
		claims = append(claims, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	return claims, nil
}

// WriteResults writes one JSON object per result.
func WriteResults(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write result for line %d: %w", r.Line, err)
		}
	}
	return bw.Flush()
}

// Summary tallies results by outcome.
type Summary struct {
	Total      int
	Resolved   int
	Unpriced   int
	Unresolved int
	Failed     int
}

// Summarize counts results by outcome.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.add(r)
	}
	return s
}

func (s *Summary) add(r Result) {
	s.Total++
	switch {
	case r.Response == nil:
		s.Failed++
	case r.Response.Status == adjudicate.StatusResolved:
		s.Resolved++
	case r.Response.Status == adjudicate.StatusResolvedUnpriced:
		s.Unpriced++
	default:
		s.Unresolved++
	}
}
