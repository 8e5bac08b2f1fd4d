// Package guard switches binaries into test mode when imported by a test.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SCM_TEST_MODE") == "" {
			_ = os.Setenv("SCM_TEST_MODE", "1")
		}
		if os.Getenv("GOTENBERG_URL") == "" {
			_ = os.Setenv("GOTENBERG_URL", "http://127.0.0.1:0")
		}
	})
}
