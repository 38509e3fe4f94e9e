// Package warning defines the warning data model shared by capture, filtering and
// reporting.
//
// # Data model
//
// Record is the central value. It contains:
//
//   - Message – the text passed by the code that raised the warning.
//   - Category – name of a node in a Taxonomy (e.g. DeprecationWarning).
//   - Filename / Line – call site that raised the warning; Line is UnknownLine when
//     the location could not be determined.
//   - SourceLine – literal source text at the call site, best-effort.
//   - Module – emitting module, used by module-scoped filter rules.
//   - Phase / NodeID – test phase and test node that owned the capture.
//
// Records are plain values: capture scopes hand them off by value and keep no
// reference afterwards.
//
// # Categories
//
// Categories form a tree rooted at Warning. Filter rules match a category and all
// of its descendants, so a rule for Warning matches everything. The tree is open:
// Define adds named categories, Ensure attaches unknown names under Warning.
package warning
