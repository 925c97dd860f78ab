package builder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPathResolution           = errors.New("could not resolve path")
	ErrWriteAccessDenied        = errors.New("write access denied")
	ErrFileWrite                = errors.New("failed to write file")
	ErrUnrecognizedSourceSuffix = errors.New("unrecognized source suffix")
	ErrDuplicateUnitConflict    = errors.New("conflicting duplicate source units")
	ErrInvalidName              = errors.New("invalid name")
	ErrBuildFailed              = errors.New("build failed")
	ErrArtifactUnreadable       = errors.New("artifact unreadable")
	ErrDynamicLoadFailed        = errors.New("dynamic load failed")
	ErrSymbolResolution         = errors.New("symbol resolution failed")
	ErrSymbolNotFound           = errors.New("symbol not found")
	ErrInvalidState             = errors.New("invalid plan state")
	ErrClosed                   = errors.New("artifact is closed")
)

// WriteAccessError is returned when a directory cannot be created or written to
type WriteAccessError struct {
	Path string
	Err  error
}

func (e *WriteAccessError) Error() string {
	return fmt.Sprintf("write access denied for %s: %v", e.Path, e.Err)
}
func (e *WriteAccessError) Unwrap() []error { return []error{ErrWriteAccessDenied, e.Err} }

// FileWriteError is returned when a generated file cannot be written
type FileWriteError struct {
	Path string
	Err  error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}
func (e *FileWriteError) Unwrap() []error { return []error{ErrFileWrite, e.Err} }

// SuffixError is returned when a unit filename matches no variant rule
type SuffixError struct {
	Filename string
}

func (e *SuffixError) Error() string {
	return fmt.Sprintf("unrecognized source suffix in %q", e.Filename)
}
func (e *SuffixError) Unwrap() error { return ErrUnrecognizedSourceSuffix }

// ConflictError is returned when two units share a filename but not their content.
// First and Second are indices into the plan's unit list before deduplication.
type ConflictError struct {
	First, Second int
	Filename      string
	Diff          string
}

func (e *ConflictError) Error() string {
	s := fmt.Sprintf("source units %d and %d both produce %q with different content", e.First, e.Second, e.Filename)
	if e.Diff != "" {
		s += "\n" + e.Diff
	}
	return s
}
func (e *ConflictError) Unwrap() error { return ErrDuplicateUnitConflict }

// ObjectCollisionError is returned when two distinct units would build the same
// object file, such as foo.c and foo.cpp
type ObjectCollisionError struct {
	First, Second int
	Object        string
}

func (e *ObjectCollisionError) Error() string {
	return fmt.Sprintf("source units %d and %d both build %q", e.First, e.Second, e.Object)
}
func (e *ObjectCollisionError) Unwrap() error { return ErrDuplicateUnitConflict }

// NameError is returned for a library or file name the build script cannot hold
type NameError struct {
	What string
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("%s %q cannot be used in a build script", e.What, e.Name)
}
func (e *NameError) Unwrap() error { return ErrInvalidName }

// BuildError is returned when the build tool failed on both attempts.
// Log is the path of the second attempt's log.
type BuildError struct {
	Log string
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed twice, see %s: %v", e.Log, e.Err)
}
func (e *BuildError) Unwrap() []error { return []error{ErrBuildFailed, e.Err} }

// ArtifactError is returned when the built library is missing or unreadable
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}
func (e *ArtifactError) Unwrap() []error { return []error{ErrArtifactUnreadable, e.Err} }

// LoadError carries the dynamic loader's message
type LoadError struct {
	Path string
	Msg  string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %s", e.Path, e.Msg)
}
func (e *LoadError) Unwrap() error { return ErrDynamicLoadFailed }

// SymbolErrors aggregates every lookup failure and duplicate name found while opening
type SymbolErrors struct {
	Details []string
}

func (e *SymbolErrors) Error() string {
	return fmt.Sprintf("%d symbol error(s):\n  %s", len(e.Details), strings.Join(e.Details, "\n  "))
}
func (e *SymbolErrors) Unwrap() error { return ErrSymbolResolution }

// StateError is returned when a phase is run out of order
type StateError struct {
	Op        string
	Want, Got State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: plan is %s, want %s", e.Op, e.Got, e.Want)
}
func (e *StateError) Unwrap() error { return ErrInvalidState }
