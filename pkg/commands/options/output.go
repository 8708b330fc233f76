package options

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// OutputOptions
type OutputOptions struct {
	JSON bool
	// Format is "", "json" or "yaml" for commands that print documents.
	Format string
}

func AddOutputArg(cmd *cobra.Command, po *OutputOptions) {
	cmd.Flags().BoolVar(&po.JSON, "json", false,
		"Output as JSON.")
}

func AddFormatArg(cmd *cobra.Command, po *OutputOptions) {
	AddOutputArg(cmd, po)
	cmd.Flags().StringVarP(&po.Format, "output", "o", "",
		"Output format. One of 'json' or 'yaml'; a table when empty.")
}

// Output resolves --json and --output into a single format name.
func (o *OutputOptions) Output() string {
	if o.JSON {
		return "json"
	}
	return o.Format
}

func (o *OutputOptions) HandleError(err error) error {
	if o.JSON && err != nil {
		out := map[string]string{
			"error": err.Error(),
		}
		b, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(color.Output, string(b))
		return nil
	}
	return err
}

// Print writes v as JSON when --json is set and as text otherwise.
func (o *OutputOptions) Print(v any, text string) error {
	if !o.JSON {
		_, _ = fmt.Fprintln(color.Output, text)
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(color.Output, string(b))
	return nil
}
