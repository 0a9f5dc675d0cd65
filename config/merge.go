package config

// mergeRaw merges override into base and returns the result. Nested
// sections are merged key by key; any other override value replaces the
// base value, lists included.
func mergeRaw(base, override map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		overrideSection, ok := v.(map[string]interface{})
		if !ok {
			result[k] = v
			continue
		}
		baseSection, ok := result[k].(map[string]interface{})
		if !ok {
			result[k] = overrideSection
			continue
		}
		result[k] = mergeRaw(baseSection, overrideSection)
	}

	return result
}
