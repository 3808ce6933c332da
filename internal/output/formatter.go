// Package output renders command results for the terminal.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Formats accepted by NewFormatter.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formatter renders a value as text.
type Formatter interface {
	Format(data any) string
}

// NewFormatter returns the Formatter for format. Unknown names fall back to
// the table formatter; use Valid to reject them first.
func NewFormatter(format string) Formatter {
	switch strings.ToLower(format) {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

// Valid reports whether format names a formatter. Empty selects the table.
func Valid(format string) bool {
	switch strings.ToLower(format) {
	case "", FormatTable, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// TableFormatter renders structs as key/value lines and slices of structs
// as aligned columns. Column names come from json tags.
type TableFormatter struct{}

func (f *TableFormatter) Format(data any) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "OK\n"
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Invalid:
		return "OK\n"
	case reflect.Slice:
		if v.Len() == 0 {
			return "No entries.\n"
		}
		elem := indirect(v.Index(0))
		if elem.Kind() != reflect.Struct {
			for i := 0; i < v.Len(); i++ {
				fmt.Fprintln(w, v.Index(i).Interface())
			}
			break
		}
		fields := visibleFields(elem.Type())
		headers := make([]string, len(fields))
		for i, fld := range fields {
			headers[i] = strings.ToUpper(fieldName(fld))
		}
		fmt.Fprintln(w, strings.Join(headers, "\t"))
		for i := 0; i < v.Len(); i++ {
			row := indirect(v.Index(i))
			vals := make([]string, len(fields))
			for j, fld := range fields {
				vals[j] = cell(row.FieldByIndex(fld.Index))
			}
			fmt.Fprintln(w, strings.Join(vals, "\t"))
		}
	case reflect.Struct:
		fields := visibleFields(v.Type())
		if len(fields) == 0 {
			return "OK\n"
		}
		for _, fld := range fields {
			fmt.Fprintf(w, "%s:\t%s\n", fieldName(fld), cell(v.FieldByIndex(fld.Index)))
		}
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			fmt.Fprintf(w, "%v:\t%s\n", k.Interface(), cell(v.MapIndex(k)))
		}
	default:
		fmt.Fprintln(w, v.Interface())
	}

	w.Flush()
	return buf.String()
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

func visibleFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous || f.Tag.Get("json") == "-" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			return name
		}
	}
	return f.Name
}

// cell renders a single value. Types with a String method use it; nested
// structs are flattened to compact JSON.
func cell(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	switch indirect(v).Kind() {
	case reflect.Struct, reflect.Slice, reflect.Map:
		b, err := json.Marshal(v.Interface())
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", v.Interface())
}

// JSONFormatter formats data as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("error formatting JSON: %v\n", err)
	}
	return string(b) + "\n"
}

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(data any) string {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error formatting YAML: %v\n", err)
	}
	return string(b)
}
