// Package guard flips the service into test mode when imported by a test binary,
// so command entrypoints never dial real infrastructure.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("INVOICE_TEST_MODE") == "" {
			_ = os.Setenv("INVOICE_TEST_MODE", "1")
		}
	})
}
