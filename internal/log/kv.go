package log

import "sort"

// KV holds key-value pairs to be attached to a log entry.
type KV map[string]any

// kvToArgs flattens the given KV maps into the alternating key/value slice
// that slog expects. Keys are emitted in sorted order per map so the output
// is deterministic.
func kvToArgs(keyVals ...KV) []any {
	args := []any{}

	for _, kv := range keyVals {
		keys := make([]string, 0, len(kv))
		for key := range kv {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			args = append(args, key, kv[key])
		}
	}

	return args
}

// kvToArgsNs is kvToArgs with the given namespace prepended as the first
// key-value pair.
func kvToArgsNs(namespace string, keyVals ...KV) []any {
	return append([]any{"ns", namespace}, kvToArgs(keyVals...)...)
}
