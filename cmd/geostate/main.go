// Command geostate extracts place mentions from text and maps them to
// ISO 3166-1 alpha-3 country codes.
//
// Usage:
//
//	geostate detect "Talks between France and Germany resumed."
//	echo "..." | geostate detect --json
//	geostate serve --addr :8080
//	geostate validate --mapping data/iso_match.jsonl
//
// The model and mapping table are loaded once at startup; loading errors
// stop the command before any input is processed.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
