package process

import (
	"context"
	"time"

	"github.com/paveg/reprise/internal/errors"
	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/logging"
)

// Dispatch routes a command to its transformer and returns the transformed
// table. Routing is total over the command union; a nil command or an
// engineering command without its reference table is a DispatchError. Each
// invocation is timed and logged, which is observable but not part of the
// functional contract.
func Dispatch(ctx context.Context, table *frame.Frame, command Command) (*frame.Frame, error) {
	if command == nil {
		return nil, errors.NewUnknownCommandError("")
	}

	start := time.Now()

	var (
		result *frame.Frame
		err    error
	)
	switch cmd := command.(type) {
	case TrainCommand, TestCommand:
		result, err = TransformEvents(ctx, table)
	case MembersCommand:
		result, err = TransformMembers(ctx, table)
	case SongsCommand:
		result, err = TransformSongs(ctx, table)
	case SongExtraCommand:
		result, err = TransformSongExtra(ctx, table)
	case EngineeringCommand:
		if cmd.Reference == nil {
			return nil, errors.NewMissingReferenceError()
		}
		result, err = TransformEngineering(ctx, table, cmd.Reference)
	default:
		return nil, errors.NewUnknownCommandError(command.Name())
	}
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("command", command.Name()).
		Dur("elapsed", time.Since(start)).
		Int("rows", result.Len()).
		Int("columns", result.Width()).
		Msg("transform complete")

	return result, nil
}
