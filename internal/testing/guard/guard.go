package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CACAOFLOW_TEST_MODE") == "" {
			_ = os.Setenv("CACAOFLOW_TEST_MODE", "1")
		}
	})
}
