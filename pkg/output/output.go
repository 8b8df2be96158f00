// Package output renders CLI results as text, table, json or yaml.
package output

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/macchain/backend/pkg/config"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format is an output format name
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

var out io.Writer = color.Output

// SetWriter redirects output, mainly for tests. nil restores the terminal.
func SetWriter(w io.Writer) {
	if w == nil {
		w = color.Output
	}
	out = w
}

// Writer returns the current destination
func Writer() io.Writer {
	return out
}

// GetOutputFormat returns the configured format, text when unknown
func GetOutputFormat() Format {
	switch f := Format(config.GetString("output.format")); f {
	case FormatJSON, FormatTable, FormatYAML:
		return f
	default:
		return FormatText
	}
}

// ValidateOutputFormat reports whether format is supported
func ValidateOutputFormat(format string) bool {
	switch Format(format) {
	case FormatText, FormatTable, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Print renders a value. Text and table fall back to an indented
// key/value listing of the value's JSON form.
func Print(title string, data interface{}) error {
	switch GetOutputFormat() {
	case FormatJSON:
		return writeJSON(data)
	case FormatYAML:
		return writeYAML(data)
	default:
		generic, err := toGeneric(data)
		if err != nil {
			return err
		}
		if title != "" {
			color.New(color.Bold).Fprintln(out, title)
		}
		writeText(generic, 0)
		return nil
	}
}

// PrintList renders rows under headers for text and table formats and
// the raw items for json and yaml.
func PrintList(title string, items interface{}, headers []string, rows [][]string) error {
	switch GetOutputFormat() {
	case FormatJSON:
		return writeJSON(items)
	case FormatYAML:
		return writeYAML(items)
	}
	if title != "" {
		color.New(color.Bold).Fprintln(out, title)
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "(none)")
		return nil
	}
	PrintTable(headers, rows)
	return nil
}

// PrintTable writes an aligned table
func PrintTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)
	for i, h := range headers {
		bold.Fprint(w, h)
		if i < len(headers)-1 {
			fmt.Fprint(w, "\t")
		}
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprint(w, cell)
			if i < len(row)-1 {
				fmt.Fprint(w, "\t")
			}
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func PrintSuccess(msg string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(out, msg+"\n", args...)
}

func PrintError(msg string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(out, "Error: "+msg+"\n", args...)
}

func PrintInfo(msg string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(out, msg+"\n", args...)
}

func PrintWarning(msg string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(out, "Warning: "+msg+"\n", args...)
}

func writeJSON(data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func writeYAML(data interface{}) error {
	generic, err := toGeneric(data)
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}

// toGeneric round-trips through JSON so json tags decide field names
func toGeneric(data interface{}) (interface{}, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func writeText(v interface{}, depth int) {
	indent := fmt.Sprintf("%*s", depth*2, "")
	bold := color.New(color.Bold)
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch child := val[k].(type) {
			case map[string]interface{}, []interface{}:
				bold.Fprintf(out, "%s%s:\n", indent, k)
				writeText(child, depth+1)
			default:
				bold.Fprintf(out, "%s%s: ", indent, k)
				fmt.Fprintln(out, scalar(child))
			}
		}
	case []interface{}:
		for i, item := range val {
			fmt.Fprintf(out, "%s- [%d]\n", indent, i)
			writeText(item, depth+1)
		}
	default:
		fmt.Fprintf(out, "%s%s\n", indent, scalar(val))
	}
}

func scalar(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.1f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
