package process

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/series"
	"github.com/paveg/reprise/internal/validation"
)

const opEvents = "events"

// replayThreshold marks a listening context as replay-prone when the
// observed replay probability reaches it
const replayThreshold = 0.6

// TransformEvents derives the event-level features: the listening-context
// flags and, when the outcome column is present, a replay-propensity flag
// computed from the table's own outcomes grouped by merged source context.
// Tables without the outcome column get a zero replay-propensity flag for
// every row. The merged-context column and its grouped statistics are
// intermediates and are dropped before return.
func TransformEvents(ctx context.Context, table *frame.Frame) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.NewCompoundValidator(
		validation.NewNonEmptyValidator(table, opEvents),
		validation.NewColumnValidator(table, opEvents,
			"msno", "song_id", "source_system_tab", "source_screen_name", "source_type"),
	).Validate(); err != nil {
		return nil, err
	}

	mem := memory.NewGoAllocator()

	t, err := table.FillNull("source_system_tab", "others")
	if err != nil {
		return nil, err
	}
	t, err = t.FillNull("source_screen_name", "others")
	if err != nil {
		return nil, err
	}
	t, err = t.FillNull("source_type", "nan")
	if err != nil {
		return nil, err
	}

	tabs, _, err := columnStrings(t, opEvents, "source_system_tab")
	if err != nil {
		return nil, err
	}
	screens, _, err := columnStrings(t, opEvents, "source_screen_name")
	if err != nil {
		return nil, err
	}
	types, _, err := columnStrings(t, opEvents, "source_type")
	if err != nil {
		return nil, err
	}

	n := t.Len()
	merged := make([]string, n)
	for i := 0; i < n; i++ {
		merged[i] = tabs[i] + " | " + screens[i] + " | " + types[i]
	}
	t, err = t.WithColumn(series.New("source_merged", merged, mem))
	if err != nil {
		return nil, err
	}

	oneHotSource := make([]int64, n)
	if t.HasColumn("target") {
		grouped, err := t.GroupBy("source_merged")
		if err != nil {
			return nil, err
		}
		stats, err := grouped.Agg(
			frame.Mean("target").As("source_replay_pb"),
			frame.Count("target").As("source_replay_count"),
		)
		if err != nil {
			return nil, err
		}
		t, err = leftJoinPreserving(opEvents, t, stats, "source_merged")
		if err != nil {
			return nil, err
		}
		replayPbs, _, err := columnFloats(t, opEvents, "source_replay_pb")
		if err != nil {
			return nil, err
		}
		for i, pb := range replayPbs {
			oneHotSource[i] = boolInt(pb >= replayThreshold)
		}
	}
	t, err = t.WithColumn(series.New("1h_source", oneHotSource, mem))
	if err != nil {
		return nil, err
	}

	oneHotTab := make([]int64, n)
	oneHotScreen := make([]int64, n)
	oneHotType := make([]int64, n)
	for i := 0; i < n; i++ {
		oneHotTab[i] = boolInt(tabs[i] == "my library")
		oneHotScreen[i] = boolInt(screens[i] == "Local playlist more" || screens[i] == "My library")
		oneHotType[i] = boolInt(types[i] == "local-library" || types[i] == "local-playlist")
	}
	t, err = withColumns(t,
		series.New("1h_system_tab", oneHotTab, mem),
		series.New("1h_screen_name", oneHotScreen, mem),
		series.New("1h_source_type", oneHotType, mem),
	)
	if err != nil {
		return nil, err
	}

	// The grouped statistics columns exist only when the outcome column did;
	// Drop skips names that are not present.
	t = t.Drop("source_merged", "source_replay_pb", "source_replay_count")

	if err := validation.ValidateNoNulls(t, opEvents); err != nil {
		return nil, err
	}
	return t, nil
}
