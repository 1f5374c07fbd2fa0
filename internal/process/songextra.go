package process

import (
	"context"
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/reprise/internal/errors"
	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/series"
	"github.com/paveg/reprise/internal/validation"
)

const opSongExtra = "song_extra_info"

// ISRC registrant codes end with a two-digit reference year. Codes above
// this pivot belong to the 1900s, the rest to the 2000s.
const isrcYearPivot = 17

// songYearFill replaces unresolvable release years
const songYearFill = 2017.0

// TransformSongExtra decodes the track release year from the ISRC code and
// flags the 2013-2017 window. The track name and the raw ISRC are dropped
// once the year is extracted.
func TransformSongExtra(ctx context.Context, table *frame.Frame) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.NewCompoundValidator(
		validation.NewNonEmptyValidator(table, opSongExtra),
		validation.NewColumnValidator(table, opSongExtra, "song_id", "name", "isrc"),
	).Validate(); err != nil {
		return nil, err
	}

	mem := memory.NewGoAllocator()

	isrcs, isrcValid, err := columnStrings(table, opSongExtra, "isrc")
	if err != nil {
		return nil, err
	}

	n := table.Len()
	years := make([]float64, n)
	yearValid := make([]bool, n)
	oneHotYear := make([]int64, n)

	for i := 0; i < n; i++ {
		if !isrcValid[i] {
			continue
		}
		year, err := isrcYear(isrcs[i])
		if err != nil {
			return nil, err
		}
		years[i] = float64(year)
		yearValid[i] = true
		oneHotYear[i] = boolInt(year >= 2013 && year <= 2017)
	}

	t, err := withColumns(table,
		series.NewNullable("song_year", years, yearValid, mem),
		series.New("1h_song_year", oneHotYear, mem),
	)
	if err != nil {
		return nil, err
	}

	t = t.Drop("name", "isrc")

	t, err = t.FillNull("song_year", songYearFill)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateNoNulls(t, opSongExtra); err != nil {
		return nil, err
	}
	return t, nil
}

// isrcYear extracts the four-digit release year from an ISRC code. The
// registrant reference year sits in characters 5-6.
func isrcYear(isrc string) (int, error) {
	if len(isrc) < 7 {
		return 0, errors.NewValidationError(opSongExtra, "isrc",
			fmt.Sprintf("isrc %q is too short to carry a reference year", isrc))
	}
	suffix, err := strconv.Atoi(isrc[5:7])
	if err != nil {
		return 0, errors.NewValidationError(opSongExtra, "isrc",
			fmt.Sprintf("isrc %q has a non-numeric reference year", isrc))
	}
	if suffix > isrcYearPivot {
		return 1900 + suffix, nil
	}
	return 2000 + suffix, nil
}
