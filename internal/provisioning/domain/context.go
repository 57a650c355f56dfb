package domain

import "context"

type workflowKey struct{}

// WithWorkflow tags ctx with the outermost workflow so nested steps are attributed to it.
// An existing tag is kept.
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	if WorkflowFromContext(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, workflowKey{}, workflow)
}

func WorkflowFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(workflowKey{}).(string)
	return v
}
