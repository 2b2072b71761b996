package errors

import (
	"fmt"

	"github.com/pontaoski/curdle/types"
)

const (
	warningModifier     = 500
	lexerErrorStart     = 1000
	parserErrorStart    = 2000
	loweringErrorStart  = 3000
	generatorErrorStart = 4000
)

type Code uint32

const (
	NotComptime Code = loweringErrorStart + iota
	BadBuiltinCall
	InvalidCast
	NotRuntime
	InvalidSubscript
	OutOfOrderInitialization
	InvalidField
	IncompleteInitialization
	MismatchedFunctionCall
	AmbiguousFunctionCall
	UnresolvedImport
	UnknownName
	CircularDependency
	NotImplemented
	NoBacteriaType
	InvalidComptimeOperation
	ExpectedType
	InvalidOperation
	NoPeerType
	NotMutable
	ConflictingDefinition
	InvalidArgument
	NoEntryPoint
)

const (
	UnusedValue Code = loweringErrorStart + warningModifier + iota
	ShadowedName
)

const (
	InvalidModule Code = generatorErrorStart + iota
)

const GeneralCompilerError Code = 9999

// Prefix is the letter shown before the numeric code.
func (c Code) Prefix() byte {
	switch {
	case c == GeneralCompilerError:
		return 'E'
	case c%1000 >= warningModifier:
		return 'W'
	case c >= lexerErrorStart && c < parserErrorStart:
		return 'L'
	case c >= parserErrorStart && c < loweringErrorStart:
		return 'P'
	case c >= loweringErrorStart && c < generatorErrorStart:
		return 'C'
	case c >= generatorErrorStart:
		return 'G'
	}
	return 'U'
}

func (c Code) IsWarning() bool {
	return c != GeneralCompilerError && c%1000 >= warningModifier
}

func (c Code) String() string {
	return fmt.Sprintf("%c%d", c.Prefix(), uint32(c))
}

// CurdleError is a semantic error whose location is supplied by whoever
// catches it.
type CurdleError struct {
	Message string
	Code    Code
}

func (e CurdleError) Error() string {
	return fmt.Sprintf("%s %s", e.Code, e.Message)
}

// Localize attaches a coordinate.
func (e CurdleError) Localize(at types.Coordinate) LocalizedError {
	return LocalizedError{Message: e.Message, Code: e.Code, Location: at}
}

type LocalizedError struct {
	Message  string
	Code     Code
	Location types.Coordinate
}

func (e LocalizedError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Location, e.Code, e.Message)
}

// NotComptimeError is raised when compile-time evaluation was required but
// the expression depends on a run-time value.
type NotComptimeError struct {
	Location types.Coordinate
}

func (e NotComptimeError) Error() string {
	return fmt.Sprintf("%s: %s expression is not known at compile time", e.Location, NotComptime)
}

type BadBuiltin struct {
	Builtin  string
	Message  string
	Location types.Coordinate
}

func (e BadBuiltin) Error() string {
	return fmt.Sprintf("%s: %s bad call to $%s: %s", e.Location, BadBuiltinCall, e.Builtin, e.Message)
}

type Unimplemented struct {
	Feature  string
	Location types.Coordinate
}

func (e Unimplemented) Error() string {
	return fmt.Sprintf("%s: %s %s is not implemented", e.Location, NotImplemented, e.Feature)
}

// Diagnostic is one recorded report.
type Diagnostic struct {
	Module   string
	Message  string
	Location types.Coordinate
	Code     Code
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("[%s] %s: %s %s", d.Module, d.Location, d.Code, d.Message)
}

// AsDiagnostic converts any of the lowering error kinds into a diagnostic.
// fallback is used when err carries no location.
func AsDiagnostic(module string, err error, fallback types.Coordinate) (Diagnostic, bool) {
	switch e := err.(type) {
	case CurdleError:
		return Diagnostic{module, e.Message, fallback, e.Code}, true
	case LocalizedError:
		return Diagnostic{module, e.Message, orFallback(e.Location, fallback), e.Code}, true
	case NotComptimeError:
		return Diagnostic{module, "expression is not known at compile time", orFallback(e.Location, fallback), NotComptime}, true
	case BadBuiltin:
		return Diagnostic{module, fmt.Sprintf("bad call to $%s: %s", e.Builtin, e.Message), orFallback(e.Location, fallback), BadBuiltinCall}, true
	case Unimplemented:
		return Diagnostic{module, e.Feature + " is not implemented", orFallback(e.Location, fallback), NotImplemented}, true
	case Diagnostic:
		return e, true
	}
	return Diagnostic{}, false
}

func orFallback(c, fallback types.Coordinate) types.Coordinate {
	if c.IsZero() {
		return fallback
	}
	return c
}
