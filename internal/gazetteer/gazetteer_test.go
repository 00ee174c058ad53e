package gazetteer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-directory/internal/geo"
)

const sampleTSV = "id\tname\tascii\tplz\tlevel\tlat\tlon\tref_lat\tref_lng\n" +
	"1\tBerlin\tBERLIN\t\t4\t52.52\t13.405\t\t\n" +
	"2\tKöln\t\t50667\t6\t\t\t50.94\t6.96\n" +
	"# comment line\n" +
	"x\tbroken\t\t\t\t\t\t\t\n" +
	"3\tSankt Augustin\t\t53757\t6\t50.77\t7.19\t\t\n"

func collect(t *testing.T, read Reader) []geo.Record {
	t.Helper()
	out := make(chan geo.Record, 16)
	var recs []geo.Record
	done := make(chan struct{})
	go func() {
		for r := range out {
			recs = append(recs, r)
		}
		close(done)
	}()
	require.NoError(t, read(context.Background(), out))
	close(out)
	<-done
	return recs
}

func TestReadTSV(t *testing.T) {
	recs := collect(t, func(ctx context.Context, out chan<- geo.Record) error {
		return ReadTSV(ctx, strings.NewReader(sampleTSV), out)
	})

	require.Len(t, recs, 3, "malformed id row is skipped")

	assert.Equal(t, int64(1), recs[0].ID)
	assert.Equal(t, 4, recs[0].Level)
	require.NotNil(t, recs[0].Location)
	assert.InDelta(t, 13.405, recs[0].Location.Lng, 1e-9)
	assert.Nil(t, recs[0].ReferenceLocation)

	assert.Equal(t, "KOELN", recs[1].ASCII, "ascii derived from name")
	assert.Equal(t, "50667", recs[1].Plz)
	assert.Nil(t, recs[1].Location)
	require.NotNil(t, recs[1].ReferenceLocation)
	assert.InDelta(t, 50.94, recs[1].ReferenceLocation.Lat, 1e-9)

	assert.Equal(t, "ST. AUGUSTIN", recs[2].ASCII)
}

func TestReadTSV_MissingColumns(t *testing.T) {
	err := ReadTSV(context.Background(), strings.NewReader("name\tplz\nBerlin\t10115\n"), make(chan geo.Record, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header needs")
}

func TestReadTSV_Empty(t *testing.T) {
	assert.NoError(t, ReadTSV(context.Background(), strings.NewReader(""), make(chan geo.Record)))
}

func TestReadTSV_OutOfRange(t *testing.T) {
	recs := collect(t, func(ctx context.Context, out chan<- geo.Record) error {
		return ReadTSV(ctx, strings.NewReader("id\tname\tlat\tlng\n1\tNowhere\t95\t10\n"), out)
	})
	assert.Empty(t, recs)
}

// writePlacesShapefile writes two point places. go-shp names the attribute
// table "<base>dbf", so it is moved to "<base>.dbf" for the reader.
func writePlacesShapefile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "places.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.NumberField("ID", 10),
		shp.StringField("NAME", 40),
		shp.StringField("PLZ", 10),
		shp.NumberField("LEVEL", 3),
	}))
	require.Equal(t, int32(0), w.Write(&shp.Point{X: 13.405, Y: 52.52}))
	require.NoError(t, w.WriteAttribute(0, 0, 1))
	require.NoError(t, w.WriteAttribute(0, 1, "Berlin"))
	require.NoError(t, w.WriteAttribute(0, 2, ""))
	require.NoError(t, w.WriteAttribute(0, 3, 4))
	require.Equal(t, int32(1), w.Write(&shp.Point{X: 11.58, Y: 48.14}))
	require.NoError(t, w.WriteAttribute(1, 0, 2))
	require.NoError(t, w.WriteAttribute(1, 1, "München"))
	require.NoError(t, w.WriteAttribute(1, 2, "80331"))
	require.NoError(t, w.WriteAttribute(1, 3, 6))
	w.Close()

	require.NoError(t, os.Rename(filepath.Join(dir, "placesdbf"), filepath.Join(dir, "places.dbf")))
	return path
}

func TestReadShapefile(t *testing.T) {
	path := writePlacesShapefile(t, t.TempDir())

	recs := collect(t, func(ctx context.Context, out chan<- geo.Record) error {
		return ReadShapefile(ctx, path, out)
	})

	require.Len(t, recs, 2)
	assert.Equal(t, "Berlin", recs[0].Name)
	require.NotNil(t, recs[0].Location)
	assert.InDelta(t, 52.52, recs[0].Location.Lat, 1e-9)
	assert.Equal(t, "MUENCHEN", recs[1].ASCII)
	assert.Equal(t, "80331", recs[1].Plz)
	assert.Equal(t, 6, recs[1].Level)
}

func TestReadShapefile_Missing(t *testing.T) {
	err := ReadShapefile(context.Background(), filepath.Join(t.TempDir(), "none.shp"), make(chan geo.Record))
	assert.Error(t, err)
}

type batchRecorder struct {
	mu      sync.Mutex
	batches []int
	fail    error
}

func (b *batchRecorder) LoadGazetteer(_ context.Context, recs []geo.Record) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return 0, b.fail
	}
	b.batches = append(b.batches, len(recs))
	return int64(len(recs)), nil
}

func emit(n int) Reader {
	return func(ctx context.Context, out chan<- geo.Record) error {
		for i := range n {
			select {
			case out <- geo.Record{ID: int64(i + 1), Name: "p"}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
}

func TestImport_Batches(t *testing.T) {
	dst := &batchRecorder{}
	n, err := Import(context.Background(), emit(7), dst, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, []int{3, 3, 1}, dst.batches)
}

func TestImport_LoaderError(t *testing.T) {
	dst := &batchRecorder{fail: errors.New("disk full")}
	_, err := Import(context.Background(), emit(100), dst, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestImport_ReaderError(t *testing.T) {
	read := func(context.Context, chan<- geo.Record) error { return errors.New("bad file") }
	n, err := Import(context.Background(), read, &batchRecorder{}, 10)
	require.Error(t, err)
	assert.Equal(t, int64(0), n)
}
