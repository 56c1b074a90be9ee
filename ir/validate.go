package ir

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gogpu/shadercross/internal/logging"
)

// ValidatorOptions configures a Validator.
type ValidatorOptions struct {
	// Logger receives debug records for each validation phase.
	// Nil discards them.
	Logger *slog.Logger
}

// Validator certifies a module before any backend reads it.
//
// Validation runs five phases in order and stops at the first error:
// type well-formedness, expression typing, control flow, resource
// bindings and entry-point capabilities. Every error is an *Error with
// a classified Kind.
type Validator struct {
	log    *slog.Logger
	module *Module
	info   *ModuleInfo

	// per-function facts gathered while walking expressions and bodies
	directGlobals [][]bool
}

// NewValidator creates a validator.
func NewValidator(options ValidatorOptions) *Validator {
	return &Validator{log: logging.OrDiscard(options.Logger)}
}

// Validate checks module with default options.
func Validate(module *Module) (*ModuleInfo, error) {
	return NewValidator(ValidatorOptions{}).Validate(module)
}

// Validate checks module and returns the derived ModuleInfo.
func (v *Validator) Validate(module *Module) (*ModuleInfo, error) {
	if module == nil {
		return nil, errors.New("module is nil")
	}

	v.module = module
	v.info = &ModuleInfo{Functions: make([]FunctionInfo, len(module.Functions))}
	v.directGlobals = make([][]bool, len(module.Functions))

	phases := []struct {
		name string
		run  func() *Error
	}{
		{"types", v.validateTypes},
		{"expressions", v.validateExpressions},
		{"control flow", v.validateControlFlow},
		{"bindings", v.validateBindings},
		{"entry points", v.validateEntryPoints},
	}

	for _, phase := range phases {
		start := time.Now()
		if err := phase.run(); err != nil {
			v.log.Debug("validation failed",
				slog.String("phase", phase.name),
				slog.String("kind", err.Kind.String()),
				slog.String("error", err.Error()))
			return nil, err
		}
		v.log.Debug("validation phase passed",
			slog.String("phase", phase.name),
			slog.Duration("elapsed", time.Since(start)))
	}

	return v.info, nil
}

func (v *Validator) isValidType(h TypeHandle) bool {
	return int(h) < len(v.module.Types)
}

func (v *Validator) typeInner(h TypeHandle) TypeInner {
	if !v.isValidType(h) {
		return nil
	}
	return v.module.Types[h].Inner
}

// sameType compares two resolutions structurally.
func (v *Validator) sameType(a, b TypeResolution) bool {
	if a.Handle != nil && b.Handle != nil && *a.Handle == *b.Handle {
		return true
	}
	ai, bi := a.Inner(v.module), b.Inner(v.module)
	if ai == nil || bi == nil {
		return false
	}
	if _, isStruct := ai.(StructType); isStruct {
		return false
	}
	return string(appendInnerKey(nil, ai)) == string(appendInnerKey(nil, bi))
}

// sameTypeAs compares a resolution to an arena type.
func (v *Validator) sameTypeAs(res TypeResolution, h TypeHandle) bool {
	return v.sameType(res, TypeResolution{Handle: &h})
}
