//go:build !statsview

package statsview

import (
	"fmt"
	"io"
)

const Address = ""

// Launch reports that the server was not built in.
func Launch(output io.Writer) {
	fmt.Fprintln(output, "stats server not available: build with -tags statsview")
}

func Available() bool {
	return false
}
