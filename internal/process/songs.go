package process

import (
	"context"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/series"
	"github.com/paveg/reprise/internal/validation"
)

const opSongs = "songs"

// songLengthThreshold splits tracks into short and long, in milliseconds
const songLengthThreshold = 239738

// TransformSongs derives the song-level features: artist composition flags,
// splitted-category counts, language encodings and the short-track flag.
// The language column is re-typed to strings at fill time, so its value
// rules match on rendered forms ("17.0", "nan").
func TransformSongs(ctx context.Context, table *frame.Frame) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.NewCompoundValidator(
		validation.NewNonEmptyValidator(table, opSongs),
		validation.NewColumnValidator(table, opSongs,
			"song_id", "song_length", "genre_ids", "artist_name", "composer", "lyricist", "language"),
	).Validate(); err != nil {
		return nil, err
	}

	mem := memory.NewGoAllocator()

	t, err := table.FillNull("artist_name", "no_artist")
	if err != nil {
		return nil, err
	}

	languages, err := renderedStrings(t, opSongs, "language")
	if err != nil {
		return nil, err
	}
	t, err = t.WithColumn(series.New("language", languages, mem))
	if err != nil {
		return nil, err
	}

	for _, col := range []string{"composer", "lyricist", "genre_ids"} {
		if t, err = t.FillNull(col, "nan"); err != nil {
			return nil, err
		}
	}

	artists, _, err := columnStrings(t, opSongs, "artist_name")
	if err != nil {
		return nil, err
	}
	composers, _, err := columnStrings(t, opSongs, "composer")
	if err != nil {
		return nil, err
	}
	lyricists, _, err := columnStrings(t, opSongs, "lyricist")
	if err != nil {
		return nil, err
	}
	genres, _, err := columnStrings(t, opSongs, "genre_ids")
	if err != nil {
		return nil, err
	}
	lengths, _, err := columnInts(t, opSongs, "song_length")
	if err != nil {
		return nil, err
	}

	n := t.Len()
	isFeatured := make([]int64, n)
	artistCount := make([]int64, n)
	artistComposer := make([]int64, n)
	artistComposerLyricist := make([]int64, n)
	songLangBoolean := make([]int64, n)
	genreCount := make([]int64, n)
	composerCount := make([]int64, n)
	lyricistCount := make([]int64, n)
	oneHotLang := make([]int64, n)
	oneHotLength := make([]int64, n)

	for i := 0; i < n; i++ {
		artist := artists[i]

		isFeatured[i] = boolInt(strings.Contains(artist, "feat"))
		if artist != "no_artist" {
			artistCount[i] = int64(strings.Count(artist, "and") +
				strings.Count(artist, ",") +
				strings.Count(artist, "feat") +
				strings.Count(artist, "&"))
		}
		artistComposer[i] = boolInt(artist == composers[i])
		artistComposerLyricist[i] = boolInt(artist == composers[i] && composers[i] == lyricists[i])

		lang := languages[i]
		songLangBoolean[i] = boolInt(strings.Contains(lang, "17.0") || strings.Contains(lang, "45.0"))
		oneHotLang[i] = boolInt(lang == "-1.0" || lang == "17.0" || lang == "45.0")

		genreCount[i] = splitCount(genres[i])
		composerCount[i] = splitCount(composers[i])
		lyricistCount[i] = splitCount(lyricists[i])

		oneHotLength[i] = boolInt(lengths[i] <= songLengthThreshold)
	}

	t, err = withColumns(t,
		series.New("is_featured", isFeatured, mem),
		series.New("artist_count", artistCount, mem),
		series.New("artist_composer", artistComposer, mem),
		series.New("artist_composer_lyricist", artistComposerLyricist, mem),
		series.New("song_lang_boolean", songLangBoolean, mem),
		series.New("genre_count", genreCount, mem),
		series.New("composer_count", composerCount, mem),
		series.New("lyricist_count", lyricistCount, mem),
		series.New("1h_lang", oneHotLang, mem),
		series.New("1h_song_length", oneHotLength, mem),
	)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateNoNulls(t, opSongs); err != nil {
		return nil, err
	}
	return t, nil
}

// splitCount counts pipe-separated entries in a filled category string.
// Only the literal '|' separator is counted; a missing value ("nan") is 0.
func splitCount(value string) int64 {
	if value == "nan" {
		return 0
	}
	return int64(strings.Count(value, "|") + 1)
}
