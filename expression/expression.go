// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package expression evaluates the small boolean language component and
// task "Check"/"AppVersion" style condition strings are written in:
// identifiers combined with and/or/not/parentheses, where "or" may also be
// implicit between two identifiers. Match tests the expression against a
// single variable assumed true, with every other identifier assumed false.
package expression

import "github.com/saferwall/innoextract/errs"

type tokenType int

const (
	tokenEnd tokenType = iota
	tokenOr
	tokenAnd
	tokenNot
	tokenParenLeft
	tokenParenRight
	tokenIdentifier
)

func isIdentifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '-'
}

func isIdentifier(c byte) bool {
	return isIdentifierStart(c) || (c >= '0' && c <= '9') || c == '\\'
}

// evaluator walks expr by hand, one token at a time, exactly mirroring the
// recursive-descent grammar: expr := term (('or'|implicit-or) term)*,
// term := factor ('and' factor)*, factor := 'not' factor | '(' expr ')' |
// identifier.
type evaluator struct {
	test string
	expr string
	pos  int

	token      tokenType
	identStart int
	identLen   int

	err error
}

func (e *evaluator) next() tokenType {
	for e.pos < len(e.expr) && e.expr[e.pos] > 0 && e.expr[e.pos] <= 32 {
		e.pos++
	}

	if e.pos >= len(e.expr) {
		e.token = tokenEnd
		return e.token
	}

	switch c := e.expr[e.pos]; {
	case c == '(':
		e.pos++
		e.token = tokenParenLeft
	case c == ')':
		e.pos++
		e.token = tokenParenRight
	case isIdentifierStart(c):
		start := e.pos
		e.pos++
		for e.pos < len(e.expr) && isIdentifier(e.expr[e.pos]) {
			e.pos++
		}
		word := e.expr[start:e.pos]
		switch word {
		case "not":
			e.token = tokenNot
		case "and":
			e.token = tokenAnd
		case "or":
			e.token = tokenOr
		default:
			e.identStart, e.identLen = start, e.pos-start
			e.token = tokenIdentifier
		}
	default:
		e.err = errs.Newf(errs.FormatError, "expression", "", "unexpected symbol in expression")
		e.token = tokenEnd
	}
	return e.token
}

func (e *evaluator) identifier() string { return e.expr[e.identStart : e.identStart+e.identLen] }

// evalIdentifier consumes an identifier token. lazy is true once the
// enclosing expression's truth value is already decided, so the scan can
// skip the string comparison and just consume the token.
func (e *evaluator) evalIdentifier(lazy bool) bool {
	result := lazy || e.identifier() == e.test
	e.next()
	return result
}

func (e *evaluator) evalFactor(lazy bool) bool {
	switch e.token {
	case tokenParenLeft:
		e.next()
		result := e.evalExpression(lazy, true)
		if e.token != tokenParenRight {
			if e.err == nil {
				e.err = errs.Newf(errs.FormatError, "expression", "", "expected closing parenthesis in expression")
			}
			return result
		}
		e.next()
		return result
	case tokenNot:
		e.next()
		return !e.evalFactor(lazy)
	case tokenIdentifier:
		return e.evalIdentifier(lazy)
	default:
		if e.err == nil {
			e.err = errs.Newf(errs.FormatError, "expression", "", "unexpected token in expression")
		}
		return false
	}
}

func (e *evaluator) evalTerm(lazy bool) bool {
	result := e.evalFactor(lazy)
	for e.err == nil && e.token == tokenAnd {
		e.next()
		result = e.evalFactor(lazy || !result) && result
	}
	return result
}

// evalExpression implements the short-circuiting "or" level: inner is true
// while recursing into a parenthesized sub-expression, where the early
// return-on-true optimization doesn't apply because the caller still needs
// to consume the closing paren's token stream either way.
func (e *evaluator) evalExpression(lazy bool, inner bool) bool {
	result := e.evalTerm(lazy)
	if result && !inner {
		return result
	}
	for e.err == nil && (e.token == tokenOr || e.token == tokenIdentifier) {
		if e.token == tokenOr {
			e.next()
		}
		result = e.evalTerm(lazy || result) || result
		if result && !inner {
			return result
		}
	}
	return result
}

// Match reports whether expr is satisfied with test assigned true and
// every other identifier assigned false. A malformed expr is treated as
// unconditionally satisfied, matching the installer's own "ignore broken
// conditions" behavior -- ok is false in that case so a caller can log it.
func Match(test, expr string) (result bool, ok bool) {
	e := &evaluator{test: test, expr: expr}
	e.next()
	result = e.evalExpression(false, false)
	if e.err != nil {
		return true, false
	}
	return result, true
}

// IsSimple reports whether expr is a single bare identifier with no
// operators -- the common case component/task lists use, worth
// special-casing before invoking the full parser.
func IsSimple(expr string) bool {
	if expr == "" {
		return true
	}
	if !isIdentifierStart(expr[0]) {
		return false
	}
	for i := 0; i < len(expr); i++ {
		if !isIdentifier(expr[i]) {
			return false
		}
	}
	return true
}
