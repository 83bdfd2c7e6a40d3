package output

import (
	"encoding/json"
)

// PrintJSON writes data as indented JSON to stdout. It ignores
// verbosity so scripted callers always get a parseable document.
func PrintJSON(data interface{}) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
