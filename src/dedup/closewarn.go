package dedup

// CloseWarnings remembers the last advisory reason sent per open position id.
type CloseWarnings struct {
	sent map[string]string
}

func NewCloseWarnings() *CloseWarnings {
	return &CloseWarnings{sent: make(map[string]string)}
}

// ShouldSend reports whether reason differs from the last one sent for
// positionID and records it when it does.
func (c *CloseWarnings) ShouldSend(positionID, reason string) bool {
	if last, ok := c.sent[positionID]; ok && last == reason {
		return false
	}
	c.sent[positionID] = reason
	return true
}

// Clear forgets the position, on close or once the advisory no longer applies.
func (c *CloseWarnings) Clear(positionID string) {
	delete(c.sent, positionID)
}

func (c *CloseWarnings) Last(positionID string) (string, bool) {
	reason, ok := c.sent[positionID]
	return reason, ok
}
