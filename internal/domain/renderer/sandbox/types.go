package sandbox

import (
	"errors"
	"time"
)

var (
	ErrPoolClosed   = errors.New("sandbox pool is closed")
	ErrTimeout      = errors.New("sandbox acquisition timeout")
	ErrNoTranspiler = errors.New("transpiler not loaded")
)

// Config defines sandbox configuration
type Config struct {
	Timeout       time.Duration // Per-render execution timeout
	EnableConsole bool          // Allow console.log/warn/error
	MaxCallStack  int           // Recursion guard for generated code
}

// DefaultConfig returns the configuration used in production.
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		EnableConsole: true,
		MaxCallStack:  1024,
	}
}

// Node is one element in the recorded render tree. A text node has an empty
// Tag and its content in Text.
type Node struct {
	Tag      string
	Props    map[string]interface{}
	Text     string
	Children []*Node
}

// IsText reports whether the node is a text node.
func (n *Node) IsText() bool { return n.Tag == "" }

// Fault describes a failure raised by the generated code itself.
type Fault struct {
	Message string
}

// LogEntry represents captured console output
type LogEntry struct {
	Level   string
	Message string
	Time    time.Time
}

// Result holds the outcome of one preflight render.
type Result struct {
	Root     *Node // Recorded tree rooted at the mount point; nil on fault
	NotFound bool  // Body executed but Component did not resolve to a callable
	Fault    *Fault
	Console  []LogEntry
	Duration time.Duration
}
