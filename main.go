// The main package for the tvgrab executable.
package main

import (
	"github.com/gkertesz/tvgrab/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
