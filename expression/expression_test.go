// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package expression

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchBareIdentifier(t *testing.T) {
	result, ok := Match("main", "main")
	require.True(t, ok)
	require.True(t, result)
}

func TestMatchNot(t *testing.T) {
	result, ok := Match("main", "not main")
	require.True(t, ok)
	require.False(t, result)
}

func TestMatchOrBothSides(t *testing.T) {
	for _, selected := range []string{"main", "docs"} {
		result, ok := Match(selected, "main or docs")
		require.True(t, ok, selected)
		require.True(t, result, selected)
	}
}

func TestMatchImplicitOr(t *testing.T) {
	result, ok := Match("docs", "main docs")
	require.True(t, ok)
	require.True(t, result)
}

func TestMatchAndRequiresBoth(t *testing.T) {
	result, ok := Match("main", "main and docs")
	require.True(t, ok)
	require.False(t, result)
}

func TestMatchAndBothSatisfied(t *testing.T) {
	result, ok := Match("shared", "shared and shared")
	require.True(t, ok)
	require.True(t, result)
}

func TestMatchParentheses(t *testing.T) {
	result, ok := Match("b", "a or (b and c)")
	require.True(t, ok)
	require.False(t, result)

	result, ok = Match("b", "a or (b and b)")
	require.True(t, ok)
	require.True(t, result)
}

func TestMatchUnterminatedParenIsMalformed(t *testing.T) {
	result, ok := Match("a", "(a")
	require.False(t, ok, "expected unterminated parenthesis to be reported malformed")
	require.True(t, result, "expected malformed expression to fail open")
}

func TestMatchUnexpectedSymbolIsMalformed(t *testing.T) {
	_, ok := Match("a", "a @ b")
	require.False(t, ok, "expected unexpected symbol to be reported malformed")
}

func TestMatchEmptyExpression(t *testing.T) {
	// An empty condition string isn't a valid expression on its own --
	// callers (e.g. extract.BuildPlan) special-case "no condition" before
	// ever invoking Match. Fed directly, it's malformed and fails open.
	result, ok := Match("anything", "")
	require.False(t, ok)
	require.True(t, result)
}

func TestIsSimple(t *testing.T) {
	cases := []struct {
		expr string
		want bool
	}{
		{"", true},
		{"main", true},
		{"main_component-1", true},
		{"main or docs", false},
		{"not main", false},
		{"(main)", false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, IsSimple(c.expr), c.expr)
	}
}
