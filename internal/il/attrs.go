package il

// FuncAttrs is the advisory attribute bundle a function carries. The
// verifier does not enforce these; optimisation passes (constant folding,
// alias analysis) may assume them.
type FuncAttrs struct {
	NoThrow  bool
	ReadOnly bool
	Pure     bool
}

// ParamAttrs is the advisory attribute bundle a parameter carries.
type ParamAttrs struct {
	NoAlias   bool
	NoCapture bool
	NonNull   bool
}
