package ir

import "fortio.org/safecast"

// FunctionBuilder assembles a Function, inserting Emit statements so
// that every expression is emitted before the statement that uses it.
//
// Expressions that need emitting accumulate in a pending range which is
// flushed as one Emit when a statement is added, when a nested block
// starts or ends, or when an expression that needs no emit is appended.
type FunctionBuilder struct {
	fn      Function
	blocks  []Block
	pending ExpressionHandle
}

// NewFunctionBuilder starts a function with the given name.
func NewFunctionBuilder(name string) *FunctionBuilder {
	return &FunctionBuilder{fn: Function{Name: name}, blocks: []Block{nil}}
}

// Arg declares an argument and returns the expression that reads it.
func (b *FunctionBuilder) Arg(name string, ty TypeHandle, binding Binding) ExpressionHandle {
	index := safecast.MustConv[uint32](len(b.fn.Arguments))
	b.fn.Arguments = append(b.fn.Arguments, FunctionArgument{Name: name, Type: ty, Binding: binding})
	return b.Expr(ExprFunctionArgument{Index: index})
}

// Result declares the return type.
func (b *FunctionBuilder) Result(ty TypeHandle, binding Binding) {
	b.fn.Result = &FunctionResult{Type: ty, Binding: binding}
}

// Local declares a local variable and returns a pointer expression to it.
func (b *FunctionBuilder) Local(name string, ty TypeHandle, init *ConstantHandle) ExpressionHandle {
	index := safecast.MustConv[uint32](len(b.fn.LocalVars))
	b.fn.LocalVars = append(b.fn.LocalVars, LocalVariable{Name: name, Type: ty, Init: init})
	return b.Expr(ExprLocalVariable{Variable: index})
}

// Expr appends an expression.
func (b *FunctionBuilder) Expr(kind ExpressionKind) ExpressionHandle {
	if !NeedsEmit(kind) {
		b.flush()
	}
	h := safecast.MustConv[ExpressionHandle](len(b.fn.Expressions))
	b.fn.Expressions = append(b.fn.Expressions, Expression{Kind: kind})
	if !NeedsEmit(kind) {
		b.pending = h + 1
	}
	return h
}

// Stmt appends a statement to the current block after flushing pending
// expressions.
func (b *FunctionBuilder) Stmt(kind StatementKind) {
	b.flush()
	top := len(b.blocks) - 1
	b.blocks[top] = append(b.blocks[top], Statement{Kind: kind})
}

// Block builds a nested block from the statements fill adds.
func (b *FunctionBuilder) Block(fill func()) Block {
	b.flush()
	b.blocks = append(b.blocks, nil)
	if fill != nil {
		fill()
	}
	b.flush()
	top := len(b.blocks) - 1
	block := b.blocks[top]
	b.blocks = b.blocks[:top]
	return block
}

// If appends an if statement.
func (b *FunctionBuilder) If(cond ExpressionHandle, accept, reject func()) {
	b.Stmt(StmtIf{Condition: cond, Accept: b.Block(accept), Reject: b.Block(reject)})
}

// Loop appends a loop. Continuing may return a break-if condition built
// inside the continuing block.
func (b *FunctionBuilder) Loop(body func(), continuing func() *ExpressionHandle) {
	bodyBlock := b.Block(body)
	var breakIf *ExpressionHandle
	contBlock := b.Block(func() {
		if continuing != nil {
			breakIf = continuing()
		}
	})
	b.Stmt(StmtLoop{Body: bodyBlock, Continuing: contBlock, BreakIf: breakIf})
}

// Call appends a call and returns the expression holding its result.
func (b *FunctionBuilder) Call(callee FunctionHandle, args ...ExpressionHandle) ExpressionHandle {
	result := b.Expr(ExprCallResult{Function: callee})
	b.Stmt(StmtCall{Function: callee, Arguments: args, Result: &result})
	return result
}

// CallVoid appends a call to a function without a result.
func (b *FunctionBuilder) CallVoid(callee FunctionHandle, args ...ExpressionHandle) {
	b.Stmt(StmtCall{Function: callee, Arguments: args})
}

// Return appends a return statement.
func (b *FunctionBuilder) Return(value *ExpressionHandle) {
	b.Stmt(StmtReturn{Value: value})
}

// Finish returns the function with its body.
func (b *FunctionBuilder) Finish() Function {
	b.flush()
	b.fn.Body = b.blocks[0]
	return b.fn
}

func (b *FunctionBuilder) flush() {
	end := safecast.MustConv[ExpressionHandle](len(b.fn.Expressions))
	if b.pending >= end {
		return
	}
	top := len(b.blocks) - 1
	b.blocks[top] = append(b.blocks[top], Statement{Kind: StmtEmit{Range: Range{Start: b.pending, End: end}}})
	b.pending = end
}
