// Package method implements method resolution over inherent implementations
// and typeclass instances (C11, spec.md §4.9): given a receiver type and a
// method name, scan every nameless impl/inst block, test each candidate's
// Self type against the receiver with speculative (non-destructive)
// unification, and report either the single match, an ambiguity between two
// or more, or "no appropriate method".
//
// Speculative unification itself is core/unify's non-destructive mode; this
// package only supplies the scan-and-collect loop, grounded on
// original_source/src/phase/resolve/method.cpp.
package method

import (
	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/core/unify"
	"github.com/kieli-lang/resolvecore/internal/intern"
)

// Candidate is one impl/inst block whose Self type speculatively matched the
// receiver and which defines the requested method name.
type Candidate struct {
	Function *adt.FunctionInfo
	Template *adt.FunctionTemplateInfo // set instead of Function for a generic method
	SelfType adt.Type
	FromInst bool // true if the candidate came from a typeclass instance block rather than an inherent impl
}

// Resolver scans a module's nameless entities against the shared
// unification engine.
type Resolver struct {
	engine *unify.Engine
}

func New(engine *unify.Engine) *Resolver {
	return &Resolver{engine: engine}
}

// Resolve looks up name against receiver's associated methods across every
// impl and inst block. It returns exactly one of: a single candidate (ok),
// two or more candidates (ambiguous, for the caller to report), or neither
// (method not found).
func (r *Resolver) Resolve(nameless adt.NamelessEntities, receiver adt.Type, name intern.Symbol) (match *Candidate, ambiguous []*Candidate) {
	var found []*Candidate

	for _, impl := range nameless.Implementations {
		if !r.speculativeMatch(impl.SelfType, receiver) {
			continue
		}
		if fn, ok := impl.Functions[name]; ok {
			found = append(found, &Candidate{Function: fn, SelfType: impl.SelfType})
		}
		if tmpl, ok := impl.Templates[name]; ok {
			found = append(found, &Candidate{Template: tmpl, SelfType: impl.SelfType})
		}
	}
	for _, inst := range nameless.Instantiations {
		if !r.speculativeMatch(inst.SelfType, receiver) {
			continue
		}
		if fn, ok := inst.Functions[name]; ok {
			found = append(found, &Candidate{Function: fn, SelfType: inst.SelfType, FromInst: true})
		}
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, found
	}
}

// speculativeMatch tests whether selfType could unify with receiver without
// committing any of the unification engine's writes (spec.md §4.9).
func (r *Resolver) speculativeMatch(selfType, receiver adt.Type) bool {
	return r.engine.UnifyTypes(selfType, receiver, unify.Options{Destructive: false})
}
