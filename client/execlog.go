package client

import "time"

// LogItem is one executed network attempt. Items are append-only and
// live until ResetExecutionLog.
type LogItem struct {
	Method        string
	URL           string
	Status        int // 0 when no response was received
	ContentLength int64
	Duration      time.Duration
	Error         string // "" on success
}

// Summary is a running aggregate over every logged attempt.
type Summary struct {
	Requests      int
	Failures      int
	TotalDuration time.Duration
	TotalBytes    int64
}

// ExecutionLog returns a copy of the collected log items.
func (c *Client) ExecutionLog() []LogItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogItem, len(c.execLog))
	copy(out, c.execLog)
	return out
}

// Summary aggregates the execution log into request/duration/byte totals.
func (c *Client) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Summary
	for _, item := range c.execLog {
		s.Requests++
		if item.Error != "" {
			s.Failures++
		}
		s.TotalDuration += item.Duration
		s.TotalBytes += item.ContentLength
	}
	return s
}

// ResetExecutionLog discards all collected log items.
func (c *Client) ResetExecutionLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execLog = nil
}

// appendLog records one attempt when log collection is enabled. Logging
// never suppresses or alters the request outcome.
func (c *Client) appendLog(item LogItem) {
	if !c.cfg.CollectLog {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execLog = append(c.execLog, item)
}
