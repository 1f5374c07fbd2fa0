package process

import (
	"context"

	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/validation"
)

const opEngineering = "engineering"

// TransformEngineering derives the cross-table aggregate features for an
// event table from statistics computed over a reference event table. The
// reference is the table itself for train and the combined table for test,
// which gives the held-out rows informative priors without circularity.
// Rows whose song or artist never appears in the reference fill to 0.
func TransformEngineering(ctx context.Context, table, reference *frame.Frame) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.NewCompoundValidator(
		validation.NewNonEmptyValidator(table, opEngineering),
		validation.NewColumnValidator(table, opEngineering, "song_id", "artist_name", "language"),
		validation.NewColumnValidator(reference, opEngineering, "song_id", "artist_name", "language"),
	).Validate(); err != nil {
		return nil, err
	}

	t, err := addPlayCounts(table, reference)
	if err != nil {
		return nil, err
	}
	t, err = addTrackCounts(t, reference)
	if err != nil {
		return nil, err
	}
	t, err = addCoverLanguageCounts(t, reference)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateNoNulls(t, opEngineering); err != nil {
		return nil, err
	}
	return t, nil
}

// addPlayCounts joins per-song reference row counts onto the target
func addPlayCounts(table, reference *frame.Frame) (*frame.Frame, error) {
	playCounts, err := reference.ValueCounts("song_id", "play_count")
	if err != nil {
		return nil, err
	}
	t, err := leftJoinPreserving(opEngineering, table, playCounts, "song_id")
	if err != nil {
		return nil, err
	}
	return t.FillNull("play_count", int64(0))
}

// addTrackCounts joins per-artist distinct-song counts onto the target.
// Alongside the track counts, a per-artist mean and count of the target
// table's own outcome column is computed and merged, then projected away so
// only track_count survives. That intermediate has no consumer; it is kept
// to match the historical computation exactly.
func addTrackCounts(table, reference *frame.Frame) (*frame.Frame, error) {
	uniqueSongs, err := reference.DropDuplicates("song_id")
	if err != nil {
		return nil, err
	}
	grouped, err := uniqueSongs.GroupBy("artist_name")
	if err != nil {
		return nil, err
	}
	trackCounts, err := grouped.Agg(frame.Count("song_id").As("track_count"))
	if err != nil {
		return nil, err
	}

	if table.HasColumn("target") {
		targetGrouped, err := table.GroupBy("artist_name")
		if err != nil {
			return nil, err
		}
		replayStats, err := targetGrouped.Agg(
			frame.Mean("target").As("artist_replay_pb"),
			frame.Count("target").As("artist_replay_count"),
		)
		if err != nil {
			return nil, err
		}
		trackCounts, err = leftJoinPreserving(opEngineering, trackCounts, replayStats, "artist_name")
		if err != nil {
			return nil, err
		}
		trackCounts = trackCounts.Select("artist_name", "track_count")
	}

	t, err := leftJoinPreserving(opEngineering, table, trackCounts, "artist_name")
	if err != nil {
		return nil, err
	}
	return t.FillNull("track_count", int64(0))
}

// addCoverLanguageCounts joins per-artist distinct-language counts onto the
// target
func addCoverLanguageCounts(table, reference *frame.Frame) (*frame.Frame, error) {
	pairs, err := reference.Select("artist_name", "language").DropDuplicates()
	if err != nil {
		return nil, err
	}
	grouped, err := pairs.GroupBy("artist_name")
	if err != nil {
		return nil, err
	}
	coverCounts, err := grouped.Agg(frame.Count("language").As("cover_lang"))
	if err != nil {
		return nil, err
	}
	t, err := leftJoinPreserving(opEngineering, table, coverCounts, "artist_name")
	if err != nil {
		return nil, err
	}
	return t.FillNull("cover_lang", int64(0))
}
