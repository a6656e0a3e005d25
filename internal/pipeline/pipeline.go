// Package pipeline drives the core engine end to end for one job:
// fetch source bytes, parse, segment, generate fMP4 output, store it,
// record it in the catalog, and notify subscribers.
package pipeline

import (
	"context"
	"fmt"

	"github.com/streamforge/hlsprep/bmff"
	"github.com/streamforge/hlsprep/catalog"
	"github.com/streamforge/hlsprep/fmp4"
	"github.com/streamforge/hlsprep/internal/logging"
	"github.com/streamforge/hlsprep/notify"
	"github.com/streamforge/hlsprep/store"
	"github.com/streamforge/hlsprep/track"
)

// Run fetches sourceKey via src, generates an init segment and media
// segments for every track, persists them via sink, records them in
// cat under job, and broadcasts a notify.Event for each one written.
func Run(ctx context.Context, job *catalog.Job, sourceKey string, targetSeconds float64, src store.Source, sink store.Sink, cat *catalog.Catalog, hub *notify.Hub, log *logging.Logger) error {
	log = log.ForJob(job.ID)
	log.Printf("fetching %s", sourceKey)

	data, err := src.Open(ctx, sourceKey)
	if err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}

	boxes, err := bmff.ReadBoxes(data)
	if err != nil {
		return fmt.Errorf("job %s: parsing boxes: %w", job.ID, err)
	}
	fileInfo, err := track.ParseFileInfo(boxes)
	if err != nil {
		return fmt.Errorf("job %s: parsing file info: %w", job.ID, err)
	}
	analyses, err := track.ParseTrackAnalyses(boxes)
	if err != nil {
		return fmt.Errorf("job %s: parsing track analyses: %w", job.ID, err)
	}
	log.Printf("parsed %d track(s)", len(analyses))

	initData := fmp4.GenerateInitSegment(fileInfo, analyses)
	initKey := fmt.Sprintf("%s/init.mp4", job.ID)
	if err := sink.Put(ctx, initKey, initData); err != nil {
		return fmt.Errorf("job %s: storing init segment: %w", job.ID, err)
	}
	if err := cat.RecordSegment(catalog.SegmentRecord{
		JobID:      job.ID,
		Kind:       catalog.SegmentInit,
		StorageKey: initKey,
		ByteSize:   len(initData),
	}); err != nil {
		return fmt.Errorf("job %s: recording init segment: %w", job.ID, err)
	}
	hub.Broadcast(notify.Event{JobID: job.ID, Kind: string(catalog.SegmentInit), StorageKey: initKey})
	log.Printf("wrote init segment %s (%d bytes)", initKey, len(initData))

	for _, ta := range analyses {
		segments := track.CalculateSegments(ta, targetSeconds)
		log.Printf("track %d: %d segment(s)", ta.Info.TrackID, len(segments))

		for seq, seg := range segments {
			mediaData := fmp4.GenerateMediaSegment(seg, uint32(seq), ta, data)
			key := fmt.Sprintf("%s/media-%d-%d.m4s", job.ID, ta.Info.TrackID, seq)
			if err := sink.Put(ctx, key, mediaData); err != nil {
				return fmt.Errorf("job %s: storing segment %d: %w", job.ID, seq, err)
			}
			rec := catalog.SegmentRecord{
				JobID:           job.ID,
				TrackID:         ta.Info.TrackID,
				SequenceNumber:  uint32(seq),
				Kind:            catalog.SegmentMedia,
				StorageKey:      key,
				ByteSize:        len(mediaData),
				DurationSeconds: seg.Duration,
			}
			if err := cat.RecordSegment(rec); err != nil {
				return fmt.Errorf("job %s: recording segment %d: %w", job.ID, seq, err)
			}
			hub.Broadcast(notify.Event{
				JobID:          job.ID,
				TrackID:        ta.Info.TrackID,
				SequenceNumber: uint32(seq),
				Kind:           string(catalog.SegmentMedia),
				StorageKey:     key,
			})
		}
	}

	log.Printf("job complete")
	return nil
}
