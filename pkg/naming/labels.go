package naming

// MergeLabels merges label (or annotation) layers left to right, later
// layers overwriting earlier ones on key conflict. Nil layers are
// skipped; the result is never nil and never aliases an input map.
func MergeLabels(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}
