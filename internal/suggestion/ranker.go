package suggestion

import (
	"math"
	"sort"

	"github.com/runger/habitd/internal/config"
)

// neutralContextMatch is the score used when either side of the
// context comparison is undefined.
const neutralContextMatch = 0.5

// Ranked pairs a suggestion with its computed score and factors.
type Ranked struct {
	Suggestion
	Factors RankingFactors `json:"ranking_factors"`
	Score   float64        `json:"relevance_score"`
}

// Ranker orders pending suggestions by weighted relevance.
type Ranker struct {
	cfg config.RankerConfig
}

// NewRanker returns a Ranker with the given weights and decay.
func NewRanker(cfg config.RankerConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Score combines the factors with the configured weights.
func (r *Ranker) Score(f RankingFactors) float64 {
	w := r.cfg.Weights
	return w.Frequency*f.Frequency + w.Recency*f.Recency + w.ContextMatch*f.ContextMatch
}

// Rank scores the suggestions and returns them ordered by score
// descending. Ties break on creation time, oldest first, so the
// ordering is stable across runs. A nil query context scores every
// suggestion's context match as neutral.
func (r *Ranker) Rank(suggestions []Suggestion, qctx *Context, nowMs int64) []Ranked {
	if len(suggestions) == 0 {
		return nil
	}

	maxOcc := 1
	for _, sg := range suggestions {
		if sg.Occurrences > maxOcc {
			maxOcc = sg.Occurrences
		}
	}

	out := make([]Ranked, 0, len(suggestions))
	for _, sg := range suggestions {
		f := RankingFactors{
			Frequency:    float64(sg.Occurrences) / float64(maxOcc),
			Recency:      r.recency(sg, nowMs),
			ContextMatch: contextMatch(sg.MatchCtx, qctx),
		}
		out = append(out, Ranked{Suggestion: sg, Factors: f, Score: r.Score(f)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedMs < out[j].CreatedMs
	})
	return out
}

// ForContext ranks against the given context and drops suggestions
// whose context match falls below the configured floor.
func (r *Ranker) ForContext(suggestions []Suggestion, qctx Context, nowMs int64) []Ranked {
	ranked := r.Rank(suggestions, &qctx, nowMs)
	out := ranked[:0]
	for _, rs := range ranked {
		if rs.Factors.ContextMatch >= r.cfg.MinContextMatch {
			out = append(out, rs)
		}
	}
	return out
}

// recency decays exponentially with the age of the last confirmation.
func (r *Ranker) recency(sg Suggestion, nowMs int64) float64 {
	last := sg.LastConfirmedMs
	if last == 0 {
		last = sg.CreatedMs
	}
	ageMs := nowMs - last
	if ageMs <= 0 {
		return 1.0
	}
	tauMs := float64(r.cfg.RecencyTauHours) * 60 * 60 * 1000
	if tauMs <= 0 {
		return 1.0
	}
	return math.Exp(-float64(ageMs) / tauMs)
}

// contextMatch compares the suggestion's defining context with the
// query context. Both sides defined yields the mean of the day-part
// and app components; one side missing yields the other alone; neither
// defined is neutral.
func contextMatch(m MatchContext, qctx *Context) float64 {
	if qctx == nil || m.Empty() {
		return neutralContextMatch
	}

	var parts []float64
	if m.DayPart != "" {
		if qctx.TimeOfDay == "" {
			parts = append(parts, neutralContextMatch)
		} else if m.DayPart == qctx.TimeOfDay {
			parts = append(parts, 1.0)
		} else {
			parts = append(parts, 0.0)
		}
	}
	if len(m.Apps) > 0 {
		if len(qctx.ActiveApps) == 0 {
			parts = append(parts, neutralContextMatch)
		} else {
			hits := 0
			for _, app := range m.Apps {
				if appMatches(qctx.ActiveApps, app) {
					hits++
				}
			}
			parts = append(parts, float64(hits)/float64(len(m.Apps)))
		}
	}

	sum := 0.0
	for _, p := range parts {
		sum += p
	}
	return sum / float64(len(parts))
}
