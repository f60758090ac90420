package client

import "github.com/soypete/volcasr/pkg/wire"

// Debugf logs when debug output is enabled
func (c *Client) Debugf(format string, args ...interface{}) {
	if !c.debug {
		return
	}
	c.logger.Printf("[DEBUG] "+format, args...)
}

// Errorf always logs
func (c *Client) Errorf(format string, args ...interface{}) {
	c.logger.Printf("[ERROR] "+format, args...)
}

// DebugJSON logs raw JSON one indented line at a time
func (c *Client) DebugJSON(prefix string, raw []byte) {
	if !c.debug {
		return
	}
	for _, l := range wire.PrettyLines(raw) {
		c.logger.Printf("[DEBUG] %s: %s", prefix, l)
	}
}

// ErrorJSON logs raw JSON one indented line at a time
func (c *Client) ErrorJSON(prefix string, raw []byte) {
	for _, l := range wire.PrettyLines(raw) {
		c.logger.Printf("[ERROR] %s: %s", prefix, l)
	}
}
