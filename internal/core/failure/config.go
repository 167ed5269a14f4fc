// Package failure classifies errors raised while running a pipeline and
// dispatches fatal ones to a configurable hook.
package failure

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Hook receives fatal errors together with the subject being processed.
// Its returned error is logged and discarded.
type Hook func(ctx context.Context, subject any, err error) error

// Config is safe for concurrent use. Share one instance by passing it to
// the components that need it.
type Config struct {
	mu                  sync.RWMutex
	allowRaiseOnFailure bool
	nonFatal            []error
	defaultNonFatal     []error
	onRaisedError       Hook
}

// ConfigUpdate carries a partial update; nil fields are left unchanged.
type ConfigUpdate struct {
	AllowRaiseOnFailure *bool
	NonFatal            []error
	DefaultNonFatal     []error
	OnRaisedError       Hook
}

// Snapshot is a copy of the configuration values.
type Snapshot struct {
	AllowRaiseOnFailure bool
	NonFatal            []error
	DefaultNonFatal     []error
}

func NewConfig() *Config {
	return &Config{allowRaiseOnFailure: true}
}

func (c *Config) AllowRaiseOnFailure() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allowRaiseOnFailure
}

// IsNonFatal reports whether err matches one of the configured non-fatal
// errors. A nil error is non-fatal.
func (c *Config) IsNonFatal(err error) bool {
	if err == nil {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, target := range c.defaultNonFatal {
		if errors.Is(err, target) {
			return true
		}
	}
	for _, target := range c.nonFatal {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (c *Config) IsFatal(err error) bool {
	return !c.IsNonFatal(err)
}

// RunRaisedErrorHook calls the hook. Errors and panics raised by the hook
// never reach the caller.
func (c *Config) RunRaisedErrorHook(ctx context.Context, subject any, err error) {
	c.mu.RLock()
	hook := c.onRaisedError
	c.mu.RUnlock()
	if hook == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("raised error hook panicked error=%v panic=%v", err, r)
		}
	}()
	if hookErr := hook(ctx, subject, err); hookErr != nil {
		log.Printf("raised error hook failed error=%v hook_error=%v", err, hookErr)
	}
}

// Handle runs the hook for fatal errors and reports whether err was fatal.
func (c *Config) Handle(ctx context.Context, subject any, err error) bool {
	if !c.IsFatal(err) {
		return false
	}
	c.RunRaisedErrorHook(ctx, subject, err)
	return true
}

func (c *Config) Update(u ConfigUpdate) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u.AllowRaiseOnFailure != nil {
		c.allowRaiseOnFailure = *u.AllowRaiseOnFailure
	}
	if u.NonFatal != nil {
		c.nonFatal = compact(u.NonFatal)
	}
	if u.DefaultNonFatal != nil {
		c.defaultNonFatal = compact(u.DefaultNonFatal)
	}
	if u.OnRaisedError != nil {
		c.onRaisedError = u.OnRaisedError
	}
	return c.snapshotLocked()
}

// Reset restores the defaults.
func (c *Config) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowRaiseOnFailure = true
	c.nonFatal = nil
	c.defaultNonFatal = nil
	c.onRaisedError = nil
}

func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Config) snapshotLocked() Snapshot {
	return Snapshot{
		AllowRaiseOnFailure: c.allowRaiseOnFailure,
		NonFatal:            append([]error(nil), c.nonFatal...),
		DefaultNonFatal:     append([]error(nil), c.defaultNonFatal...),
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("allow_raise=%t non_fatal=%d default_non_fatal=%d", s.AllowRaiseOnFailure, len(s.NonFatal), len(s.DefaultNonFatal))
}

// compact drops nil entries and duplicates.
func compact(in []error) []error {
	out := make([]error, 0, len(in))
	for _, e := range in {
		if e == nil {
			continue
		}
		dup := false
		for _, seen := range out {
			if errors.Is(e, seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}
