package app

import (
	"os"
	"strconv"
)

const testModeEnv = "TANKTOOLS_TEST_MODE"

// InTestMode reports whether TANKTOOLS_TEST_MODE is set. The binaries exit
// before dialing postgres or redis when it is.
func InTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	return on
}
