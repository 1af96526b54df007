// Command jobsched runs the demo engine on a categorized job scheduler.
//
// Game-object logic runs on the game_object category every tick while an
// asynchronous logger drains on its own single-worker logger category.
// Scheduler metrics are served on /metrics.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
