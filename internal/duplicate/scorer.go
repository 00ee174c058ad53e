// Package duplicate flags new submissions that likely repeat an existing entry.
package duplicate

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/metrics"
)

// Defaults for Config.
const (
	DefaultThreshold     = 3.0
	DefaultAddressWeight = 0.5
)

// Config holds the scoring constants.
type Config struct {
	Threshold     float64
	AddressWeight float64
}

// DefaultConfig returns the stock scoring constants.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, AddressWeight: DefaultAddressWeight}
}

// Candidates lists existing entries of one type.
type Candidates interface {
	ListByType(ctx context.Context, kind string) ([]*entry.Entry, error)
}

// Scorer compares submissions against existing entries of the same type.
type Scorer struct {
	src Candidates
	cfg Config
}

// NewScorer creates a Scorer. Zero config values fall back to defaults.
func NewScorer(src Candidates, cfg Config) *Scorer {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.AddressWeight == 0 {
		cfg.AddressWeight = DefaultAddressWeight
	}
	return &Scorer{src: src, cfg: cfg}
}

// Threshold returns the configured default threshold.
func (s *Scorer) Threshold() float64 { return s.cfg.Threshold }

// Breakdown is the similarity of two entries.
type Breakdown struct {
	Other   int
	Address int
	Score   float64
}

// Compare scores b against a. Fields absent on either side never count.
// Entries of different types never match and score zero.
func (s *Scorer) Compare(a, b *entry.Entry) Breakdown {
	if a.Type != b.Type {
		return Breakdown{}
	}

	other := 1 // type
	if a.Name != "" && a.Name == b.Name {
		other++
	}
	for _, pair := range [][2]*string{
		{a.AcademicTitle, b.AcademicTitle},
		{a.FirstName, b.FirstName},
		{a.LastName, b.LastName},
		{a.Email, b.Email},
		{a.Website, b.Website},
		{a.Telephone, b.Telephone},
		{a.Accessible, b.Accessible},
	} {
		if present(pair[0]) && present(pair[1]) && *pair[0] == *pair[1] {
			other++
		}
	}
	if !a.Meta.IsEmpty() && metaEqual(a.Meta, b.Meta) {
		other++
	}

	address := 0
	if a.Address.City != "" && a.Address.City == b.Address.City {
		address++
	}
	for _, pair := range [][2]*string{
		{a.Address.Plz, b.Address.Plz},
		{a.Address.Street, b.Address.Street},
		{a.Address.House, b.Address.House},
	} {
		if present(pair[0]) && present(pair[1]) && *pair[0] == *pair[1] {
			address++
		}
	}

	return Breakdown{
		Other:   other,
		Address: address,
		Score:   float64(other) + s.cfg.AddressWeight*float64(address),
	}
}

// FindPossibleDuplicate returns the id of the best-scoring same-type entry
// whose score exceeds threshold. Among equal scores the most recently
// submitted entry wins, then the greatest id. Lookup failures are logged
// and reported as no duplicate.
func (s *Scorer) FindPossibleDuplicate(ctx context.Context, e *entry.Entry, threshold float64) (string, bool) {
	existing, err := s.src.ListByType(ctx, e.Type)
	if err != nil {
		zap.L().Error("duplicate: list candidates failed",
			zap.String("type", e.Type),
			zap.Error(err),
		)
		return "", false
	}

	var best *entry.Entry
	var bestScore float64
	for _, cand := range existing {
		if cand.ID == e.ID {
			continue
		}
		score := s.Compare(e, cand).Score
		if score <= threshold {
			continue
		}
		if best == nil || better(score, cand, bestScore, best) {
			best, bestScore = cand, score
		}
	}

	if best == nil {
		return "", false
	}

	metrics.DuplicatesFlagged.Inc()
	zap.L().Info("duplicate: possible duplicate found",
		zap.String("type", e.Type),
		zap.String("duplicate_of", best.ID),
		zap.Float64("score", bestScore),
	)
	return best.ID, true
}

func better(score float64, cand *entry.Entry, bestScore float64, best *entry.Entry) bool {
	if score != bestScore {
		return score > bestScore
	}
	if !cand.SubmittedTimestamp.Equal(best.SubmittedTimestamp) {
		return cand.SubmittedTimestamp.After(best.SubmittedTimestamp)
	}
	return cand.ID > best.ID
}

func present(s *string) bool {
	return s != nil && *s != ""
}

func metaEqual(a, b entry.Meta) bool {
	return slices.Equal(a.Offers, b.Offers) &&
		slices.Equal(a.Attributes, b.Attributes) &&
		ptrEqual(a.Specials, b.Specials) &&
		ptrEqual(a.MinAge, b.MinAge) &&
		ptrEqual(a.Subject, b.Subject)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
