// Package gazetteer imports place records from tab-separated files and
// point shapefiles into the gazetteer table.
package gazetteer

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/geo"
	"github.com/sells-group/provider-directory/internal/normalize"
)

// Column names recognised in TSV headers and shapefile attribute tables.
const (
	colID     = "id"
	colName   = "name"
	colASCII  = "ascii"
	colPlz    = "plz"
	colLevel  = "level"
	colLat    = "lat"
	colLng    = "lng"
	colRefLat = "ref_lat"
	colRefLng = "ref_lng"
)

// aliases maps alternative header spellings to the canonical column.
var aliases = map[string]string{
	"lon":       colLng,
	"long":      colLng,
	"longitude": colLng,
	"latitude":  colLat,
	"ref_lon":   colRefLng,
	"postcode":  colPlz,
	"zip":       colPlz,
}

func canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(strings.TrimRight(name, "\x00")))
	if c, ok := aliases[name]; ok {
		return c
	}
	return name
}

// fields is one raw row keyed by canonical column.
type fields map[string]string

func (f fields) point(latCol, lngCol string) (*geo.Point, error) {
	latS, lngS := f[latCol], f[lngCol]
	if latS == "" && lngS == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: parse %s %q", latCol, latS)
	}
	lng, err := strconv.ParseFloat(lngS, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: parse %s %q", lngCol, lngS)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, eris.Errorf("gazetteer: coordinates out of range (%g, %g)", lat, lng)
	}
	p := geo.NewPoint(lng, lat)
	return &p, nil
}

// record converts a raw row. A missing ascii form is derived from the name.
func (f fields) record() (geo.Record, error) {
	var r geo.Record

	id, err := strconv.ParseInt(f[colID], 10, 64)
	if err != nil {
		return r, eris.Wrapf(err, "gazetteer: parse id %q", f[colID])
	}
	r.ID = id

	r.Name = f[colName]
	if r.Name == "" {
		return r, eris.Errorf("gazetteer: record %d has no name", id)
	}
	r.ASCII = f[colASCII]
	if r.ASCII == "" {
		r.ASCII = normalize.ASCIIFold(r.Name)
	}
	r.Plz = f[colPlz]

	if lv := f[colLevel]; lv != "" {
		if r.Level, err = strconv.Atoi(lv); err != nil {
			return r, eris.Wrapf(err, "gazetteer: parse level %q", lv)
		}
	}

	if r.Location, err = f.point(colLat, colLng); err != nil {
		return r, err
	}
	if r.ReferenceLocation, err = f.point(colRefLat, colRefLng); err != nil {
		return r, err
	}
	return r, nil
}
