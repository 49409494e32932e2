package rbac

// VisibleTo returns the items p may see, preserving input order.
// A nil principal sees nothing.
func VisibleTo[T Owned](p *Principal, items []T) []T {
	if p == nil {
		return []T{}
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if CanSee(p, item.Resource()) {
			out = append(out, item)
		}
	}
	return out
}
