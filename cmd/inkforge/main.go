// Command inkforge is the CLI entrypoint: it delegates immediately to the
// cobra command tree in cmd/cmd.
package main

import "inkforge/cmd/cmd"

func main() {
	cmd.Execute()
}
