package models

// NextStatus derives an order's status from its items.
// Finalized never changes here; only an explicit operator action sets it.
func NextStatus(current Status, items []OrderItem) Status {
	if current.IsTerminal() {
		return current
	}
	if len(items) == 0 {
		return StatusPreparing
	}
	for _, item := range items {
		if !item.Completed {
			return StatusPreparing
		}
	}
	return StatusDelivered
}

// AllCompleted reports whether items is non-empty and every item is completed
func AllCompleted(items []OrderItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !item.Completed {
			return false
		}
	}
	return true
}
