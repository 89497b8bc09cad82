package guest

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

type ctxKeyCall struct{}

// call is the host-side state of one guest entry point invocation. Host
// imports find it through the context wazero passes them.
type call struct {
	scope   *registry.Scope
	pending *typedesc.Type
	log     *zap.Logger
	module  string
	err     error
}

func withCall(ctx context.Context, c *call) context.Context {
	return context.WithValue(ctx, ctxKeyCall{}, c)
}

func callFrom(ctx context.Context) *call {
	c, _ := ctx.Value(ctxKeyCall{}).(*call)
	return c
}

// fail records the first error of the call.
func (c *call) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}
