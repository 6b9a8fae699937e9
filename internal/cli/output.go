package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// printResult writes data in the selected format. text renders the text
// form; json and yaml encode data as-is.
func printResult(w io.Writer, format string, data any, text func(io.Writer) error) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		return text(w)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
