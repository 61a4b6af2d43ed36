package engine

import "github.com/duoplan/duoplan/internal/plan"

// HandlePush exposes handlePush to the external test package.
func (e *Engine) HandlePush(env plan.Envelope) { e.handlePush(env) }
