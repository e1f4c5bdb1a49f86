package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"tradedesk/internal/pricing"
	"tradedesk/internal/validation"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindNumber
	kindInt
	kindBool
	kindRef // nullable id of another record; blank means NULL
)

type field struct {
	column string
	kind   fieldKind
	enum   []string
}

func text(col string) field { return field{column: col, kind: kindText} }

func number(col string) field { return field{column: col, kind: kindNumber} }

func integer(col string) field { return field{column: col, kind: kindInt} }

func boolean(col string) field { return field{column: col, kind: kindBool} }

func ref(col string) field { return field{column: col, kind: kindRef} }

func enum(col string, allowed []string) field {
	return field{column: col, kind: kindText, enum: allowed}
}

// allowList builds the accepted-name → field map. Every field is accepted by
// its column name; aliases add friendlier names for the same column.
func allowList(fields []field, aliases map[string]string) map[string]field {
	m := make(map[string]field, len(fields)+len(aliases))
	for _, f := range fields {
		m[f.column] = f
	}
	for alias, col := range aliases {
		m[alias] = m[col]
	}
	return m
}

// coerce checks v against the field's type and returns the value to bind.
func (f field) coerce(v interface{}) (interface{}, error) {
	switch f.kind {
	case kindNumber:
		n, ok := pricing.ParseFloat(v)
		if !ok {
			return nil, invalidf("%s: must be a number", f.column)
		}
		var ve validation.ValidationErrors
		validation.ValidateNonNegativeFloat(&ve, f.column, n)
		validation.ValidateMaxPrice(&ve, f.column, n)
		if ve.HasErrors() {
			return nil, invalidf("%s", ve.Error())
		}
		return n, nil
	case kindInt:
		n, ok := pricing.ParseInt(v)
		if !ok {
			return nil, invalidf("%s: must be an integer", f.column)
		}
		var ve validation.ValidationErrors
		validation.ValidateNonNegativeInt(&ve, f.column, n)
		validation.ValidateMaxQuantity(&ve, f.column, n)
		if ve.HasErrors() {
			return nil, invalidf("%s", ve.Error())
		}
		return n, nil
	case kindBool:
		b, ok := parseBool(v)
		if !ok {
			return nil, invalidf("%s: must be a boolean", f.column)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case kindRef:
		s, ok := textValue(v)
		if !ok {
			return nil, invalidf("%s: must be an id", f.column)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		return s, nil
	}
	s, ok := textValue(v)
	if !ok {
		return nil, invalidf("%s: must be text", f.column)
	}
	var ve validation.ValidationErrors
	validation.ValidateMaxLength(&ve, f.column, s, validation.MaxStringLength)
	if f.enum != nil {
		validation.ValidateEnum(&ve, f.column, s, f.enum)
		if s == "" {
			ve.Add(f.column, "is required")
		}
	}
	if ve.HasErrors() {
		return nil, invalidf("%s", ve.Error())
	}
	return s, nil
}

func textValue(v interface{}) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}

func parseBool(v interface{}) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case nil:
		return false, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "yes", "y", "on":
			return true, true
		case "0", "false", "no", "n", "off", "":
			return false, true
		}
		return false, false
	}
	n, ok := pricing.ParseFloat(v)
	if !ok || (n != 0 && n != 1) {
		return false, false
	}
	return n == 1, true
}

// patchSet validates a field map against allowed and returns the columns
// and values in a stable order.
func patchSet(e *Entity, fields map[string]interface{}) ([]string, []interface{}, error) {
	if len(fields) == 0 {
		return nil, nil, invalidf("%s: no fields to update", e.Name)
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		cols []string
		args []interface{}
		seen = map[string]bool{}
	)
	for _, name := range names {
		f, ok := e.fields[name]
		if !ok {
			return nil, nil, ErrFieldNotAllowed.Here().WithMessagef("%s: field %q is not updatable (allowed: %s)",
				e.Name, name, strings.Join(e.Updatable(), ", "))
		}
		if seen[f.column] {
			return nil, nil, invalidf("%s: field %q given twice", e.Name, f.column)
		}
		seen[f.column] = true
		v, err := f.coerce(fields[name])
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, f.column)
		args = append(args, v)
	}
	return cols, args, nil
}
