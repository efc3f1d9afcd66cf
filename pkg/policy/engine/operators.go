package engine

import (
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// compare evaluates value <op> threshold. Unknown operators never match.
func compare(op ast.Operator, value, threshold float64) bool {
	switch op {
	case ast.OpLessThan:
		return value < threshold

	case ast.OpLessOrEqual:
		return value <= threshold

	case ast.OpGreaterThan:
		return value > threshold

	case ast.OpGreaterOrEqual:
		return value >= threshold

	case ast.OpEqual:
		return value == threshold

	case ast.OpNotEqual:
		return value != threshold

	default:
		return false
	}
}
