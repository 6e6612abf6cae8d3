// Package consensus reduces every attendee's responses into per-weekend vote
// tallies and a recommended weekend. It keeps no state: callers recompute the
// summary from the committed responses on every read.
package consensus

import "github.com/pkordes/weekend-poll/internal/domain"

// Counts is the vote tally for one weekend. Empty responses are in none of
// the three buckets.
type Counts struct {
	Yes   int `json:"yes"`
	Maybe int `json:"maybe"`
	No    int `json:"no"`
}

// Total is the number of attendees who answered this weekend at all.
func (c Counts) Total() int {
	return c.Yes + c.Maybe + c.No
}

// Score is the availability of one weekend in [0, 1]: a yes counts fully, a
// maybe counts half, and the denominator is every attendee, answered or not.
func Score(c Counts, attendees int) float64 {
	if attendees <= 0 {
		return 0
	}
	return (float64(c.Yes) + 0.5*float64(c.Maybe)) / float64(attendees)
}

// Weekend is the aggregate for a single weekend index.
type Weekend struct {
	Index  int     `json:"index"`
	Counts Counts  `json:"counts"`
	Score  float64 `json:"score"`
}

// Summary is the full aggregate of a poll.
//
// Best is the index of the highest score, lowest index on ties. It is 0 for
// an all-empty poll, which is why HasVotes must be checked before Best is
// shown to anyone.
type Summary struct {
	Weekends  []Weekend `json:"weekends"`
	Attendees int       `json:"attendees"`
	Best      int       `json:"best"`
	HasVotes  bool      `json:"hasVotes"`
}

// BestWeekend returns Best and true when at least one vote exists.
func (s Summary) BestWeekend() (int, bool) {
	if !s.HasVotes || len(s.Weekends) == 0 {
		return 0, false
	}
	return s.Best, true
}

// Tally aggregates responses over weekendCount weekends. Each element of
// responses is one attendee; keys outside [0, weekendCount) are ignored.
func Tally(weekendCount int, responses []domain.Responses) Summary {
	if weekendCount < 0 {
		weekendCount = 0
	}
	s := Summary{
		Weekends:  make([]Weekend, weekendCount),
		Attendees: len(responses),
	}

	for i := range s.Weekends {
		s.Weekends[i].Index = i
	}
	for _, r := range responses {
		for idx, v := range r {
			if idx < 0 || idx >= weekendCount {
				continue
			}
			c := &s.Weekends[idx].Counts
			switch v {
			case domain.Yes:
				c.Yes++
			case domain.Maybe:
				c.Maybe++
			case domain.No:
				c.No++
			}
		}
	}

	bestScore := -1.0
	for i := range s.Weekends {
		w := &s.Weekends[i]
		w.Score = Score(w.Counts, s.Attendees)
		if w.Counts.Total() > 0 {
			s.HasVotes = true
		}
		// Strictly greater keeps the first index on ties.
		if w.Score > bestScore {
			bestScore = w.Score
			s.Best = i
		}
	}
	return s
}

// TallyAttendees is Tally over a poll's attendee list.
func TallyAttendees(weekendCount int, attendees []domain.Attendee) Summary {
	rs := make([]domain.Responses, len(attendees))
	for i, a := range attendees {
		rs[i] = a.Responses
	}
	return Tally(weekendCount, rs)
}
