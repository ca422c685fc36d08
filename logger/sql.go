package logger

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const tmFmtWithMS = "2006-01-02 15:04:05.999"

var numericPlaceholderRe = regexp.MustCompile(`\$\d+\$`)

func isPrintable(s []byte) bool {
	for _, r := range s {
		if !unicode.IsPrint(rune(r)) {
			return false
		}
	}
	return true
}

// ExplainSQL renders sql with vars inlined, for traces only. numericPlaceholder matches
// numbered bind vars such as $1, nil means vars are bound with ?
func ExplainSQL(sql string, numericPlaceholder *regexp.Regexp, escaper string, vars ...interface{}) string {
	formatted := make([]string, len(vars))
	for idx, v := range vars {
		formatted[idx] = explainVar(v, escaper)
	}

	if numericPlaceholder == nil {
		var idx int
		var newSQL strings.Builder

		for _, v := range []byte(sql) {
			if v == '?' && len(formatted) > idx {
				newSQL.WriteString(formatted[idx])
				idx++
				continue
			}
			newSQL.WriteByte(v)
		}

		return newSQL.String()
	}

	sql = numericPlaceholder.ReplaceAllString(sql, "$$$1$$")
	return numericPlaceholderRe.ReplaceAllStringFunc(sql, func(v string) string {
		num := v[1 : len(v)-1]
		n, _ := strconv.Atoi(num)

		// position var start from 1 ($1, $2)
		n -= 1
		if n >= 0 && n <= len(formatted)-1 {
			return formatted[n]
		}
		return v
	})
}

func explainVar(v interface{}, escaper string) string {
	if valuer, ok := v.(driver.Valuer); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "NULL"
		}
		v, _ = valuer.Value()
	}

	quote := func(s string) string {
		return escaper + strings.ReplaceAll(s, escaper, escaper+escaper) + escaper
	}

	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return quote("0000-00-00 00:00:00")
		}
		return quote(v.Format(tmFmtWithMS))
	case *time.Time:
		if v == nil {
			return "NULL"
		}
		return explainVar(*v, escaper)
	case []byte:
		if isPrintable(v) {
			return quote(string(v))
		}
		return quote("<binary>")
	case string:
		return quote(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "NULL"
		}
		return explainVar(rv.Elem().Interface(), escaper)
	case reflect.String:
		return quote(rv.String())
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return explainVar(rv.Bytes(), escaper)
		}
	}

	return quote(fmt.Sprint(v))
}
