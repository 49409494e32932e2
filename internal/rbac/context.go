package rbac

import "context"

// PrincipalSource yields the principal bound to the current interaction.
type PrincipalSource interface {
	CurrentPrincipal() *Principal
}

type sourceContextKey struct{}

// ContextWithSource stores the interaction's principal source in ctx.
func ContextWithSource(ctx context.Context, src PrincipalSource) context.Context {
	return context.WithValue(ctx, sourceContextKey{}, src)
}

// PrincipalFromContext reads the principal through the stored source, so a
// logout earlier in the same request is observed. Returns nil when absent.
func PrincipalFromContext(ctx context.Context) *Principal {
	src, _ := ctx.Value(sourceContextKey{}).(PrincipalSource)
	if src == nil {
		return nil
	}
	return src.CurrentPrincipal()
}
