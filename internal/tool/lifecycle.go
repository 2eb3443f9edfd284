package tool

import (
	"context"
	"encoding/json"
)

// Hooks are lifecycle callbacks fired around every tool invocation.
// OnStart runs before Execute; OnFinish runs after, with the execution
// error if any. Both are optional.
type Hooks struct {
	OnStart  func(name string, args json.RawMessage)
	OnFinish func(name string, args json.RawMessage, err error)
}

// WithLifecycle decorates a tool so every invocation emits start and
// finish notifications. The decorated tool is otherwise transparent.
func WithLifecycle(t Tool, hooks Hooks) Tool {
	return &lifecycleTool{inner: t, hooks: hooks}
}

type lifecycleTool struct {
	inner Tool
	hooks Hooks
}

func (l *lifecycleTool) Name() string                { return l.inner.Name() }
func (l *lifecycleTool) Description() string         { return l.inner.Description() }
func (l *lifecycleTool) Parameters() json.RawMessage { return l.inner.Parameters() }

func (l *lifecycleTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	if l.hooks.OnStart != nil {
		l.hooks.OnStart(l.inner.Name(), input)
	}

	result, err := l.inner.Execute(ctx, input, tc)

	if l.hooks.OnFinish != nil {
		l.hooks.OnFinish(l.inner.Name(), input, err)
	}
	return result, err
}
