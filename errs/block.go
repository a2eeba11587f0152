// Package errs defines the typed block exceptions raised by admission
// checkers. A BlockError always carries the resource name and the rule
// kind that triggered it so callers and logging can attribute a rejection
// without re-walking the slot chain.
package errs

import "fmt"

// BlockType identifies which checker produced a BlockError.
type BlockType uint8

const (
	BlockTypeFlow BlockType = iota
	BlockTypeDegrade
	BlockTypeAuthority
	BlockTypeParamFlow
	BlockTypeSystem
)

func (t BlockType) String() string {
	switch t {
	case BlockTypeFlow:
		return "FlowException"
	case BlockTypeDegrade:
		return "DegradeException"
	case BlockTypeAuthority:
		return "AuthorityException"
	case BlockTypeParamFlow:
		return "ParamFlowException"
	case BlockTypeSystem:
		return "SystemBlockException"
	default:
		return "BlockException"
	}
}

// BlockError is the typed rejection raised by a RuleCheckSlot. Rule is an
// opaque value (the originating *flow.FlowRule, *circuitbreaker.Rule, ...)
// so this package has no dependency on the rule packages themselves.
type BlockError struct {
	BlockType BlockType
	Resource  string
	Rule      interface{}
	// Value is set only for ParamFlowException: the offending argument.
	Value interface{}
	msg   string
}

func New(blockType BlockType, resource string, rule interface{}) *BlockError {
	return &BlockError{BlockType: blockType, Resource: resource, Rule: rule}
}

func NewWithMessage(blockType BlockType, resource string, rule interface{}, msg string) *BlockError {
	return &BlockError{BlockType: blockType, Resource: resource, Rule: rule, msg: msg}
}

func NewParamFlow(resource string, rule interface{}, value interface{}) *BlockError {
	return &BlockError{BlockType: BlockTypeParamFlow, Resource: resource, Rule: rule, Value: value}
}

func (e *BlockError) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("%s: resource=%s: %s", e.BlockType, e.Resource, e.msg)
	}
	return fmt.Sprintf("%s: resource=%s", e.BlockType, e.Resource)
}

// IsBlockError reports whether err is itself a *BlockError; wrapped errors
// are not unwrapped.
func IsBlockError(err error) bool {
	_, ok := err.(*BlockError)
	return ok
}
