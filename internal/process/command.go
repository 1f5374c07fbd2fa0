// Package process implements the per-table transformers and the dispatcher
// that routes transform commands to them.
//
// Commands form a closed union: train, test, members, songs,
// song_extra_info, and engineering. The engineering variant carries its
// mandatory reference table so a dispatch cannot be constructed without one
// slipping past the type system; ParseCommand is the string boundary for
// config and CLI input.
package process

import (
	"github.com/paveg/reprise/internal/errors"
	"github.com/paveg/reprise/internal/frame"
)

// Command selects a transformer. The union is closed: only the command
// types in this package implement it.
type Command interface {
	// Name returns the symbolic command name
	Name() string

	isCommand()
}

// TrainCommand selects the event-table transformer for the train table
type TrainCommand struct{}

// TestCommand selects the event-table transformer for the test table
type TestCommand struct{}

// MembersCommand selects the members transformer
type MembersCommand struct{}

// SongsCommand selects the songs transformer
type SongsCommand struct{}

// SongExtraCommand selects the song-provenance transformer
type SongExtraCommand struct{}

// EngineeringCommand selects the cross-table aggregation transformer.
// Reference is the table whose rows are aggregated into the target's
// features; it is mandatory.
type EngineeringCommand struct {
	Reference *frame.Frame
}

func (TrainCommand) Name() string       { return "train" }
func (TestCommand) Name() string        { return "test" }
func (MembersCommand) Name() string     { return "members" }
func (SongsCommand) Name() string       { return "songs" }
func (SongExtraCommand) Name() string   { return "song_extra_info" }
func (EngineeringCommand) Name() string { return "engineering" }

func (TrainCommand) isCommand()       {}
func (TestCommand) isCommand()        {}
func (MembersCommand) isCommand()     {}
func (SongsCommand) isCommand()       {}
func (SongExtraCommand) isCommand()   {}
func (EngineeringCommand) isCommand() {}

// ParseCommand maps a symbolic command name onto its command value. The
// reference table is attached to engineering commands and ignored for all
// others. Unrecognized names are a DispatchError.
func ParseCommand(name string, reference *frame.Frame) (Command, error) {
	switch name {
	case "train":
		return TrainCommand{}, nil
	case "test":
		return TestCommand{}, nil
	case "members":
		return MembersCommand{}, nil
	case "songs":
		return SongsCommand{}, nil
	case "song_extra_info":
		return SongExtraCommand{}, nil
	case "engineering":
		return EngineeringCommand{Reference: reference}, nil
	default:
		return nil, errors.NewUnknownCommandError(name)
	}
}
