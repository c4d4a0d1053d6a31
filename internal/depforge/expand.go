package depforge

import "strings"

// maxExpandPasses bounds template expansion.
const maxExpandPasses = 10

// Expander resolves {name}, {version}, {filename} and {bucket} placeholders in
// target templates. It performs no I/O.
type Expander struct {
	// Bucket is the shared object storage bucket for {bucket}.
	Bucket string
}

// Expand substitutes placeholders in tmpl until none remain. {filename} yields
// the target's raw filename template, which the following pass expands.
func (e *Expander) Expand(t *Target, tmpl string) (string, error) {
	cur := tmpl
	for pass := 1; pass <= maxExpandPasses; pass++ {
		if !strings.Contains(cur, "{") {
			return cur, nil
		}
		if strings.Contains(cur, "{bucket}") && e.Bucket == "" {
			return "", configErrorf("%s: template %q needs {bucket} but no bucket is configured (GCLOUD_BUCKET)", t.Name, tmpl)
		}
		next := strings.NewReplacer(
			"{name}", t.Name,
			"{version}", t.Version,
			"{filename}", t.Filename,
			"{bucket}", e.Bucket,
		).Replace(cur)
		if next == cur {
			// Only unknown placeholders left; more passes cannot change anything.
			return "", &RecursionLimitError{Template: tmpl, Passes: pass, Last: cur}
		}
		cur = next
	}
	if strings.Contains(cur, "{") {
		return "", &RecursionLimitError{Template: tmpl, Passes: maxExpandPasses, Last: cur}
	}
	return cur, nil
}

// Filename returns the expanded archive filename of t.
func (e *Expander) Filename(t *Target) (string, error) {
	return e.Expand(t, t.Filename)
}
