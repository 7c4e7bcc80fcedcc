package panel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/jalali"
)

// Filter narrows a fetched list on the client. The zero Filter keeps
// everything.
type Filter[T blog.Record] struct {
	// Query is matched case-insensitively against the record's visible
	// fields, and against its "#id" references.
	Query string
	// Equals compares raw fields exactly, ignoring case. "" and "all" mean
	// no constraint.
	Equals map[string]string
	Where  []func(T) bool
	// Extra adds searchable text for a record, such as hydrated user names.
	Extra func(T) []string
}

func (f Filter[T]) Apply(items []T) []T {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if f.matchEquals(item) && f.matchWhere(item) && f.matchQuery(item, q) {
			out = append(out, item)
		}
	}
	return out
}

func (f Filter[T]) matchEquals(item T) bool {
	if len(f.Equals) == 0 {
		return true
	}
	fields := item.Fields()
	for field, want := range f.Equals {
		if want == "" || want == "all" {
			continue
		}
		if !strings.EqualFold(stringify(fields[field]), want) {
			return false
		}
	}
	return true
}

func (f Filter[T]) matchWhere(item T) bool {
	for _, pred := range f.Where {
		if !pred(item) {
			return false
		}
	}
	return true
}

func (f Filter[T]) matchQuery(item T, q string) bool {
	if q == "" {
		return true
	}
	terms := item.SearchTerms()
	if f.Extra != nil {
		terms = append(terms, f.Extra(item)...)
	}
	hay := strings.ToLower(strings.Join(terms, " "))
	if strings.Contains(hay, q) {
		return true
	}
	for _, ref := range item.RefTerms() {
		if ref != "" && strings.Contains(ref, q) {
			return true
		}
	}
	return false
}

// Sort orders items by "field" or "-field". *_at fields compare as times in
// either calendar, numbers numerically, everything else with Persian
// collation. The sort is stable.
func Sort[T blog.Record](items []T, ordering string) {
	ordering = strings.TrimSpace(ordering)
	if ordering == "" {
		return
	}
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")
	timeField := strings.HasSuffix(field, "_at")
	collator := collate.New(language.Persian)

	sort.SliceStable(items, func(i, j int) bool {
		a := items[i].Fields()[field]
		b := items[j].Fields()[field]

		var cmp int
		switch {
		case timeField:
			cmp = compareInt64(timeValue(a), timeValue(b))
		default:
			an, aok := number(a)
			bn, bok := number(b)
			if aok && bok {
				cmp = compareFloat(an, bn)
			} else {
				cmp = collator.CompareString(stringify(a), stringify(b))
			}
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func timeValue(v any) int64 {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0
	}
	t, ok := jalali.ParseTime(s)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		return blog.RefLabel(t)
	}
	return fmt.Sprint(v)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
