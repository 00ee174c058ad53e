// Package geocoding runs address geocoding for new and edited entries in
// the background, off the request path.
package geocoding

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
	"github.com/sells-group/provider-directory/internal/metrics"
	"github.com/sells-group/provider-directory/pkg/geocode"
)

// DefaultQueueSize is the channel capacity used when none is configured.
const DefaultQueueSize = 256

// Job asks for the location of one entry.
type Job struct {
	EntryID string
	Address geocode.AddressInput
}

// NewJob builds a job from an entry's postal address.
func NewJob(id string, a entry.Address) Job {
	return Job{EntryID: id, Address: AddressInput(a)}
}

// AddressInput converts an entry address into geocoder input.
func AddressInput(a entry.Address) geocode.AddressInput {
	in := geocode.AddressInput{City: a.City}
	if a.Plz != nil {
		in.Plz = *a.Plz
	}
	if a.Street != nil {
		in.Street = *a.Street
	}
	if a.House != nil {
		in.House = *a.House
	}
	return in
}

// LocationWriter stores geocoding results.
type LocationWriter interface {
	// SetLocation reports false when no entry has the id.
	SetLocation(ctx context.Context, id string, p *geo.Point) (bool, error)
}

// Queue is a bounded in-process job queue with a single consumer.
type Queue struct {
	client geocode.Client
	writer LocationWriter
	jobs   chan Job
}

// NewQueue creates a Queue holding at most size pending jobs.
func NewQueue(client geocode.Client, writer LocationWriter, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		client: client,
		writer: writer,
		jobs:   make(chan Job, size),
	}
}

// Enqueue adds job without blocking. When the queue is full the job is
// dropped and false is returned; the entry stays ungeocoded.
func (q *Queue) Enqueue(job Job) bool {
	select {
	case q.jobs <- job:
		metrics.GeocodeQueueDepth.Set(float64(len(q.jobs)))
		return true
	default:
		metrics.GeocodeJobs.WithLabelValues("dropped").Inc()
		zap.L().Warn("geocoding: queue full, job dropped", zap.String("entry_id", job.EntryID))
		return false
	}
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int { return len(q.jobs) }

// Run consumes jobs until ctx is done. Pending jobs are abandoned on exit.
func (q *Queue) Run(ctx context.Context) error {
	zap.L().Info("geocoding: worker started", zap.Int("capacity", cap(q.jobs)))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("geocoding: worker stopped", zap.Int("pending", len(q.jobs)))
			return nil
		case job := <-q.jobs:
			metrics.GeocodeQueueDepth.Set(float64(len(q.jobs)))
			q.Process(ctx, job)
		}
	}
}

// Process geocodes one job synchronously and writes the result. It
// returns the outcome label: matched, unmatched, failed or gone.
func (q *Queue) Process(ctx context.Context, job Job) string {
	log := zap.L().With(zap.String("entry_id", job.EntryID))

	res, err := q.client.Geocode(ctx, job.Address)
	if err != nil {
		log.Warn("geocoding: lookup failed", zap.Error(err))
		return q.done("failed")
	}
	if !res.Matched {
		log.Debug("geocoding: address not found", zap.String("city", job.Address.City))
		return q.done("unmatched")
	}

	p := geo.NewPoint(res.Longitude, res.Latitude)
	ok, err := q.writer.SetLocation(ctx, job.EntryID, &p)
	if err != nil {
		log.Error("geocoding: write location", zap.Error(err))
		return q.done("failed")
	}
	if !ok {
		log.Debug("geocoding: entry gone before location was written")
		return q.done("gone")
	}

	log.Debug("geocoding: location set", zap.Float64("lat", res.Latitude), zap.Float64("lng", res.Longitude))
	return q.done("matched")
}

func (q *Queue) done(result string) string {
	metrics.GeocodeJobs.WithLabelValues(result).Inc()
	return result
}
