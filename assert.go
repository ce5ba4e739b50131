//go:build !fgnoassert

package framegraph

// assertionsEnabled reports whether contract checks are compiled in.
const assertionsEnabled = true

// assert panics with a *ContractError when cond is false.
func assert(cond bool, format string, args ...any) {
	if !cond {
		panic(contractf(format, args...))
	}
}
