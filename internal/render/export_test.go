package render

// Test-only aliases so the external render_test package, which has to
// live outside the package to import testsupport without an import
// cycle, can still reach manager internals.
var DeriveOutputPath = deriveOutputPath

// ResolveArgs exposes resolveArgs to the external test package.
func (m *Manager) ResolveArgs(req StartRequest) ([]string, error) {
	return m.resolveArgs(req)
}
