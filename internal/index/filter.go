package index

import "fmt"

// Filter restricts a search to records whose metadata Key equals Value,
// or, with Exclude set, differs from it.
type Filter struct {
	Key     string
	Value   string
	Exclude bool
}

// Eq matches records where key == value.
func Eq(key, value string) *Filter { return &Filter{Key: key, Value: value} }

// Ne matches records where key != value, including records without key.
func Ne(key, value string) *Filter { return &Filter{Key: key, Value: value, Exclude: true} }

// Match reports whether metadata satisfies the filter. A nil filter matches
// everything.
func (f *Filter) Match(md map[string]string) bool {
	if f == nil {
		return true
	}
	v, ok := md[f.Key]
	if f.Exclude {
		return !ok || v != f.Value
	}
	return ok && v == f.Value
}

func (f *Filter) documentScope() (string, bool) {
	if f == nil || f.Exclude || f.Key != MetaDocumentID {
		return "", false
	}
	return f.Value, true
}

func (f *Filter) String() string {
	if f == nil {
		return "none"
	}
	op := "="
	if f.Exclude {
		op = "!="
	}
	return fmt.Sprintf("%s%s%s", f.Key, op, f.Value)
}
