package validation

import (
	"html"
	"reflect"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var markupStripper = strings.NewReplacer("<", "", ">", "")

// Sanitizer strips markup and surrounding whitespace from user input.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// String returns in as plain text with tags removed, entities decoded and
// stray angle brackets dropped. Runs of spaces collapse to one and at most
// one blank line separates paragraphs. Output escaping is left to the
// template layer.
func (s *Sanitizer) String(in string) string {
	out := s.policy.Sanitize(in)
	out = html.UnescapeString(out)
	out = markupStripper.Replace(out)
	return collapseSpace(out)
}

func collapseSpace(in string) string {
	lines := strings.Split(in, "\n")
	kept := lines[:0]
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// Struct sanitizes every exported string field of the struct pointed to by v.
// Fields tagged `sanitize:"-"` are left untouched.
func (s *Sanitizer) Struct(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)
		if !sf.IsExported() || sf.Tag.Get("sanitize") == "-" {
			continue
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(s.String(field.String()))
		case reflect.Struct:
			s.Struct(field.Addr().Interface())
		}
	}
}
