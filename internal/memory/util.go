package memory

import "github.com/memcore/memcore/internal/tagging"

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// hasMetadataKey reports whether metadata carries any key that also names
// a well-known metadata tag, e.g. {"config": ...}. This is one of the four
// is_metadata signals alongside explicit input, a metadata tag, and the
// benchmark flag.
func hasMetadataKey(metadata map[string]any) bool {
	for k := range metadata {
		if tagging.MetadataTags[k] {
			return true
		}
	}
	return false
}

// mergeTagsUnion appends tags from b not already present in a, preserving
// a's order and b's first-occurrence order for the appended tail.
func mergeTagsUnion(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string{}, a...)
	for _, t := range a {
		seen[t] = true
	}
	for _, t := range b {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// mergeMetadata applies patch onto base: present keys overwrite, keys
// named in clear are deleted, everything else in base is left alone.
func mergeMetadata(base, patch map[string]any, clear []string) map[string]any {
	out := cloneMetadata(base)
	if out == nil && (len(patch) > 0 || len(clear) > 0) {
		out = map[string]any{}
	}
	for k, v := range patch {
		out[k] = v
	}
	for _, k := range clear {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
