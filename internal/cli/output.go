package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBold   = "\033[1m"
)

func (a *app) paint(code, s string) string {
	if a.noColor {
		return s
	}
	return code + s + ansiReset
}

func (a *app) colorRed(s string) string    { return a.paint(ansiRed, s) }
func (a *app) colorGreen(s string) string  { return a.paint(ansiGreen, s) }
func (a *app) colorYellow(s string) string { return a.paint(ansiYellow, s) }
func (a *app) bold(s string) string        { return a.paint(ansiBold, s) }

// printError shows the inline failure line. A lost or missing session has
// already been reported by the expiry hook.
func (a *app) printError(err error) {
	if errors.Is(err, apiclient.ErrSessionExpired) || errors.Is(err, apiclient.ErrNotLoggedIn) {
		return
	}
	var valErr *blog.ValidationError
	if errors.As(err, &valErr) {
		fmt.Fprintf(a.errOut, "%s %s\n", a.colorRed("✗"), a.colorRed("Please fix the highlighted fields:"))
		for _, fe := range valErr.Fields {
			fmt.Fprintf(a.errOut, "  %s: %s\n", fe.Field, fe.Message)
		}
		return
	}
	fmt.Fprintf(a.errOut, "%s %s\n", a.colorRed("✗"), a.colorRed(err.Error()))
}

func (a *app) printSuccess(format string, args ...any) {
	if a.structured() {
		return
	}
	fmt.Fprintf(a.out, "%s %s\n", a.colorGreen("✓"), fmt.Sprintf(format, args...))
}

func (a *app) structured() bool {
	return a.jsonOut || a.yamlOut
}

// printStructured writes v as JSON or YAML when either was requested and
// reports whether it did.
func (a *app) printStructured(v any) (bool, error) {
	switch {
	case a.jsonOut:
		return true, a.printJSON(v)
	case a.yamlOut:
		return true, a.printYAML(v)
	}
	return false, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (a *app) printYAML(v any) error {
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func (a *app) printTableHeader(w *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(w, a.bold(strings.Join(cols, "\t")))
}

func printRow(w *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

// printFields lists a record's raw fields as key/value lines.
func (a *app) printFields(fields map[string]any, order []string) error {
	w := a.newTable()
	seen := make(map[string]bool, len(order))
	for _, key := range order {
		seen[key] = true
		if v, ok := fields[key]; ok {
			printRow(w, a.bold(key), display(v))
		}
	}
	for _, key := range sortedKeys(fields) {
		if !seen[key] {
			printRow(w, a.bold(key), display(fields[key]))
		}
	}
	return w.Flush()
}

func display(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		if t == "" {
			return "-"
		}
		return truncate(strings.ReplaceAll(t, "\n", " "), 80)
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case map[string]any:
		return blog.RefLabel(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, display(item))
		}
		return strings.Join(parts, ", ")
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
