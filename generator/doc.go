// Package generator produces the named infrastructure-template artifacts an
// externalization commits. The artifact content is opaque to the rest of the
// system; generators only promise a named, non-empty blob derived from an
// organism snapshot. StaticGenerator renders a deterministic template; the
// anthropic and openai subpackages delegate template authoring to a model.
package generator
