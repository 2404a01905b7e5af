package traversal

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// часы таймаутов regexp2 гаснут сами примерно через секунду
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/dlclark/regexp2.runClock"))
}
