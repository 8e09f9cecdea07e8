package project

import (
	"github.com/entrhq/lookout/pkg/security/workspace"
)

// Confine returns a resolver that only consults next for project paths the
// guard accepts. Accepted paths are passed on in resolved form.
func Confine(next PortResolver, guard *workspace.Guard) PortResolver {
	return PortResolverFunc(func(projectPath string) (uint16, error) {
		resolved, err := guard.Resolve(projectPath)
		if err != nil {
			return 0, err
		}
		return next.ResolvePort(resolved)
	})
}
