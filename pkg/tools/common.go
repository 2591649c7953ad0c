/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package tools

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"
)

// CamelToSnake converts a camel case string to a dashed lower case string,
// e.g. "CpuThreshold" becomes "cpu-threshold".
func CamelToSnake(name string) string {
	var result strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteByte('-')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

// PrintStructKeyVal prints the key-value pairs of a struct into a
// human-readable format. Fields listed in masked are printed as "***"
// when not empty.
func PrintStructKeyVal(w io.Writer, structure interface{}, masked ...string) {
	val := reflect.ValueOf(structure)
	if val.Kind() == reflect.Pointer {
		val = val.Elem()
	}
	typ := val.Type()

	hidden := map[string]bool{}
	for _, m := range masked {
		hidden[m] = true
	}

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		name := typ.Field(i).Name
		snakeCaseName := CamelToSnake(name)
		if hidden[name] && !field.IsZero() {
			fmt.Fprintf(w, "  - %s: ***\n", snakeCaseName)
			continue
		}
		if field.Kind() == reflect.String {
			fmt.Fprintf(w, "  - %s: %s\n", snakeCaseName, field.String())
			continue
		}
		if field.Kind() == reflect.Slice {
			fmt.Fprintf(w, "  - %s:\n", snakeCaseName)
			for j := 0; j < field.Len(); j++ {
				fmt.Fprintf(w, "    - %v\n", field.Index(j).Interface())
			}
			continue
		}
		if field.Kind() == reflect.Bool {
			fmt.Fprintf(w, "  - %s: %v\n", snakeCaseName, field.Bool())
			continue
		}
		fmt.Fprintf(w, "  - %s: %v\n", snakeCaseName, field.Interface())
	}
}

// HumanDuration formats d with at most two units, e.g. "3d 4h" or "12m".
func HumanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
