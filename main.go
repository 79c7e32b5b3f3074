// Command remotefiles fetches a configured list of remote files and writes them to local paths.
package main

import (
	"github.com/JakeFAU/remotefiles/cmd"
)

func main() {
	cmd.Execute()
}
