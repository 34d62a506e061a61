// internal/common/database/checker.go
package database

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Checker is a backing service the readiness endpoint checks.
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

// CheckAll pings every check concurrently and returns the failures keyed by
// check name. A nil map means everything answered.
func CheckAll(ctx context.Context, checkers ...Checker) map[string]error {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures map[string]error
	)

	for _, p := range checkers {
		if p == nil {
			continue
		}
		wg.Add(1)
		go func(p Checker) {
			defer wg.Done()
			if err := p.Ping(ctx); err != nil {
				mu.Lock()
				if failures == nil {
					failures = make(map[string]error)
				}
				failures[p.Name()] = err
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()
	return failures
}

// FailedNames lists the keys of a CheckAll result in a stable order.
func FailedNames(failures map[string]error) string {
	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
