package pager

// Reconcile keeps a "currently selected item" reference valid as its backing
// collection changes. The selection is a weak reference by identifier, never
// an owning one:
//
//   - the current key, when still present, is preserved unchanged
//   - an absent or empty key falls back to the first item
//   - an empty collection yields no selection ("")
//
// Run after every merge, reset, and filter change.
func Reconcile[T Item](items []T, currentKey string) string {
	if currentKey != "" {
		for _, it := range items {
			if it.Key() == currentKey {
				return currentKey
			}
		}
	}

	if len(items) > 0 {
		return items[0].Key()
	}

	return ""
}
