package jobs

import (
	"context"
	"time"

	"Attentus/clients/storage"
	"Attentus/util"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	// Runs every day at 03:15
	sweepSchedule = "15 3 * * *"
	// Recordings younger than this may still belong to a running pipeline.
	orphanAge    = 24 * time.Hour
	sweepTimeout = 30 * time.Minute
)

type RecordingStore interface {
	Bucket() string
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	Delete(ctx context.Context, path string) error
}

type RecordingIndex interface {
	RecordingReferenced(ctx context.Context, recordingURL string) (bool, error)
}

type Sweeper struct {
	Store RecordingStore
	Index RecordingIndex
	Now   func() time.Time
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

/*
* List every object under recordings/
* Skip the recent ones and the ones an appointment points at
* Delete the rest, one failure does not stop the sweep
 */
func (s *Sweeper) SweepOrphanRecordings(ctx context.Context) (int, error) {
	objects, err := s.Store.List(ctx, util.RecordingPrefix)
	if err != nil {
		log.Error().Err(err).Msg("Error while listing recordings")
		return 0, err
	}

	cutoff := s.now().Add(-orphanAge)
	deleted := 0
	for _, obj := range objects {
		if obj.Created.After(cutoff) {
			continue
		}
		referenced, err := s.Index.RecordingReferenced(ctx, storage.PublicURL(s.Store.Bucket(), obj.Path))
		if err != nil {
			log.Error().Err(err).Str("path", obj.Path).Msg("Error from RecordingReferenced")
			continue
		}
		if referenced {
			continue
		}
		if err := s.Store.Delete(ctx, obj.Path); err != nil {
			log.Error().Err(err).Str("path", obj.Path).Msg("Error while deleting orphaned recording")
			continue
		}
		deleted++
	}
	log.Info().Int("scanned", len(objects)).Int("deleted", deleted).Msg("Orphaned recording sweep finished")
	return deleted, nil
}

func StartDailyScheduler(s *Sweeper) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(sweepSchedule, func() {
		log.Info().Msg("Running orphaned recording sweep...")
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.SweepOrphanRecordings(ctx); err != nil {
			log.Error().Err(err).Msg("Orphaned recording sweep failed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
