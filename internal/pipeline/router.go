package pipeline

import "context"

// Router sends commands to the command processor and everything else to
// the knowledge scanner.
type Router struct {
	commands  *IDQueue
	knowledge *IDQueue
}

func NewRouter(commands, knowledge *IDQueue) *Router {
	return &Router{commands: commands, knowledge: knowledge}
}

func (*Router) Name() string { return "router" }

func (r *Router) Handle(_ context.Context, rc *RequestContext) (Result, error) {
	if rc.IsCommand() {
		return forward(true, r.commands), nil
	}
	return forward(true, r.knowledge), nil
}
