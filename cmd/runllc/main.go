package main

import (
	"os"
	"runtime"

	"github.com/nabla-containers/runllc/llcli"
)

func init() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		// namespace setup in the re-executed child must stay on one thread
		runtime.GOMAXPROCS(1)
		runtime.LockOSThread()
	}
}

func main() {
	llcli.Run("runllc")
}
