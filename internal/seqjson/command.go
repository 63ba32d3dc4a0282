package seqjson

import (
	"time"

	"github.com/NASA-AMMOS/aerie-sub006/internal/timecode"
)

// TimeKind discriminates the four command timing variants.
type TimeKind string

const (
	TimeAbsolute        TimeKind = "ABSOLUTE"
	TimeCommandRelative TimeKind = "COMMAND_RELATIVE"
	TimeEpochRelative   TimeKind = "EPOCH_RELATIVE"
	TimeComplete        TimeKind = "COMMAND_COMPLETE"
)

// Time is the timing tag of a single command. Exactly one variant is
// populated; use the constructors below.
type Time struct {
	Kind     TimeKind
	Absolute time.Time     // valid when Kind == TimeAbsolute
	Offset   time.Duration // valid when Kind is a relative variant
}

// AbsoluteTime tags a command with a UTC instant.
func AbsoluteTime(t time.Time) Time {
	return Time{Kind: TimeAbsolute, Absolute: t.UTC()}
}

// CommandRelative tags a command with an offset from the previous command.
func CommandRelative(d time.Duration) Time {
	return Time{Kind: TimeCommandRelative, Offset: d}
}

// EpochRelative tags a command with an offset from the sequence epoch.
func EpochRelative(d time.Duration) Time {
	return Time{Kind: TimeEpochRelative, Offset: d}
}

// CompleteTime tags a command to run on completion of the previous command.
func CompleteTime() Time {
	return Time{Kind: TimeComplete}
}

// Tag renders the wire-format tag for the timing variant. Command-complete
// timing has no tag.
func (t Time) Tag() string {
	switch t.Kind {
	case TimeAbsolute:
		return timecode.FormatDOY(t.Absolute)
	case TimeCommandRelative, TimeEpochRelative:
		return timecode.FormatHMS(t.Offset)
	default:
		return ""
	}
}

// Arg is a single named command argument in canonical dictionary order.
type Arg struct {
	Name  string
	Value any
}

// Command is one command stem invocation: the stem string as it appears in
// the mission dictionary, its arguments in canonical order, one timing tag,
// and an opaque metadata bag.
type Command struct {
	Stem     string
	Args     []Arg
	Time     Time
	Metadata map[string]any
}

// NewCommand builds a command with command-complete timing. Use WithTime to
// attach an explicit timing tag.
func NewCommand(stem string, args ...Arg) Command {
	return Command{Stem: stem, Args: args, Time: CompleteTime()}
}

// WithTime returns a copy of the command carrying the given timing tag.
// Assigning a new tag replaces any previous one.
func (c Command) WithTime(t Time) Command {
	c.Time = t
	return c
}

// WithMetadata returns a copy of the command with the given metadata entry.
func (c Command) WithMetadata(key string, value any) Command {
	md := make(map[string]any, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		md[k] = v
	}
	md[key] = value
	c.Metadata = md
	return c
}

// Sequence is an ordered list of commands plus identifying metadata. Command
// order is execution order.
type Sequence struct {
	ID       string
	Metadata map[string]any
	Steps    []Command
}
