/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
)

// Write renders a record slice as CSV. Column headers come from the json
// tags of T's exported fields; pointer fields are flattened (nil becomes an
// empty cell), timestamps render as RFC3339, and non-scalar fields render as
// compact JSON.
func Write[T any](w io.Writer, records []T) error {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("export requires a struct record type, got %T", zero)
	}

	fields := exportFields(t)
	if len(fields) == 0 {
		return fmt.Errorf("record type %T has no exportable fields", zero)
	}

	cw := csv.NewWriter(w)

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i, rec := range records {
		rv := reflect.ValueOf(rec)
		row := make([]string, len(fields))
		for j, f := range fields {
			cell, err := formatValue(rv.Field(f.index))
			if err != nil {
				return fmt.Errorf("record %d, column %s: %w", i, f.name, err)
			}
			row[j] = cell
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

type field struct {
	name  string
	index int
}

// exportFields lists the struct fields that carry a usable json tag.
func exportFields(t reflect.Type) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			continue
		}
		out = append(out, field{name: tag, index: i})
	}
	return out
}

var dateTimeType = reflect.TypeOf(strfmt.DateTime{})

func formatValue(v reflect.Value) (string, error) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", nil
		}
		v = v.Elem()
	}

	if v.Type() == dateTimeType {
		return time.Time(v.Interface().(strfmt.DateTime)).Format(time.RFC3339), nil
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	case reflect.Slice, reflect.Map, reflect.Struct:
		if v.Kind() == reflect.Slice && v.Len() == 0 {
			return "", nil
		}
		doc, err := json.Marshal(v.Interface())
		if err != nil {
			return "", fmt.Errorf("failed to encode cell: %w", err)
		}
		return string(doc), nil
	default:
		return fmt.Sprintf("%v", v.Interface()), nil
	}
}
