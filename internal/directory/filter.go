package directory

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/geo"
	"github.com/sells-group/provider-directory/internal/metrics"
	"github.com/sells-group/provider-directory/internal/query"
)

// Filter returns one page of published entries matching c. When c names a
// place or coordinates that resolve, entries are ordered by distance from
// it and LocationName is set; an unresolved place falls back to recency
// order.
func (s *Service) Filter(ctx context.Context, c query.Criteria) (*Page, error) {
	place := s.pivot(ctx, c.Lookup())

	var pivot *geo.Point
	if place != nil {
		pivot = &place.Location
	}

	res, err := s.ranker.RankPublic(ctx, query.Public(c), pivot, c.Page)
	if err != nil {
		return nil, eris.Wrap(err, "directory: filter")
	}
	return page(res, place), nil
}

// GetUnapproved lists entries awaiting moderation, newest first.
func (s *Service) GetUnapproved(ctx context.Context, pageNo int) (*Page, error) {
	res, err := s.ranker.RankPublic(ctx, query.Unapproved(), nil, pageNo)
	if err != nil {
		return nil, eris.Wrap(err, "directory: unapproved")
	}
	return page(res, nil), nil
}

// FilterFull runs an admin filter expression. Entries keep every field and
// approvedBy carries the moderator's name. A filter that does not compile
// returns an error wrapping ErrCompilation.
func (s *Service) FilterFull(ctx context.Context, f query.AdminFilter) (*Page, error) {
	var place *geo.Place
	var radius float64
	if f.Location != nil && f.Location.LocationName != "" {
		place = s.pivot(ctx, geo.Lookup{Text: f.Location.LocationName})
		radius = f.Location.Distance
	}

	var pivot *geo.Point
	if place != nil {
		pivot = &place.Location
	}

	where, err := s.compiler.Compile(ctx, f.Filter, pivot, radius)
	if err != nil {
		return nil, err
	}

	res, err := s.ranker.Rank(ctx, where, pivot, f.Page)
	if err != nil {
		return nil, eris.Wrap(err, "directory: filter full")
	}
	if s.names != nil {
		s.names.Label(ctx, res.Entries)
	}
	return page(res, place), nil
}

// FindGeoLocation lists up to the configured number of places matching text.
func (s *Service) FindGeoLocation(ctx context.Context, text string) []geo.Place {
	return s.resolver.FindLocation(ctx, text)
}

// FindGeoName names the gazetteer place nearest to p.
func (s *Service) FindGeoName(ctx context.Context, p geo.Point) []geo.Place {
	return s.resolver.FindName(ctx, p)
}

func (s *Service) pivot(ctx context.Context, l geo.Lookup) *geo.Place {
	if l.Text == "" && (l.Lat == nil || l.Lng == nil) {
		return nil
	}
	place, ok := s.resolver.Resolve(ctx, l)
	if !ok {
		metrics.GeoResolutions.WithLabelValues("miss").Inc()
		zap.L().Debug("directory: location not resolved", zap.String("location", l.Text))
		return nil
	}
	metrics.GeoResolutions.WithLabelValues("hit").Inc()
	return place
}

func page(res *query.Page, place *geo.Place) *Page {
	p := &Page{Entries: res.Entries, More: res.More}
	if place != nil {
		p.LocationName = place.Name
	}
	return p
}
