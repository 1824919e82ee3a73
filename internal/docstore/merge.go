package docstore

// DeepMerge merges src into dst. Nested objects are merged key by key;
// any other value in src replaces the one in dst.
func DeepMerge(dst, src map[string]any) {
	for k, sv := range src {
		srcMap, ok := sv.(map[string]any)
		if !ok {
			dst[k] = sv
			continue
		}
		dstMap, ok := dst[k].(map[string]any)
		if !ok {
			dstMap = make(map[string]any, len(srcMap))
			dst[k] = dstMap
		}
		DeepMerge(dstMap, srcMap)
	}
}
