package widget

import (
	"bytes"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Normalizer maps a raw host push (tool output plus response metadata) onto
// canonical items. It never fails: anything it cannot read becomes an empty
// or neutral value.
type Normalizer[T Identifiable] func(output, metadata []byte) ([]T, map[string]string)

var printer = message.NewPrinter(language.English)

// parseLenient reads raw as JSON, falling back to the outermost {...} span,
// and unwraps string-encoded payloads and a string "result" field.
func parseLenient(raw []byte) gjson.Result {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return gjson.Result{}
	}

	var r gjson.Result
	if gjson.ValidBytes(raw) {
		r = gjson.ParseBytes(raw)
	} else {
		start, end := bytes.IndexByte(raw, '{'), bytes.LastIndexByte(raw, '}')
		if start == -1 || end <= start || !gjson.ValidBytes(raw[start:end+1]) {
			return gjson.Result{}
		}
		r = gjson.ParseBytes(raw[start : end+1])
	}

	if r.Type == gjson.String {
		r = parseLenient([]byte(r.String()))
	}
	if res := r.Get("result"); res.Type == gjson.String {
		if inner := parseLenient([]byte(res.String())); inner.IsObject() {
			r = inner
		}
	}
	return r
}

// truthy mirrors how upstream payloads mark a value as "not provided":
// missing, null, empty string, false or zero.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.JSON:
		return r.Raw != "" && r.Raw != "{}" && r.Raw != "[]"
	}
	return r.Exists()
}

func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); truthy(v) {
			return v
		}
	}
	return gjson.Result{}
}

func firstString(r gjson.Result, paths ...string) string {
	v := first(r, paths...)
	if !v.Exists() || v.IsObject() || v.IsArray() {
		return ""
	}
	return v.String()
}

// amount reads a numeric or string money value.
func amount(r gjson.Result) (decimal.Decimal, bool) {
	switch r.Type {
	case gjson.Number:
		return decimal.NewFromFloat(r.Num), true
	case gjson.String:
		d, err := decimal.NewFromString(r.Str)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// currencyLabel renders "USD 1,234.50".
func currencyLabel(ccy string, amt decimal.Decimal) string {
	f, _ := amt.Round(2).Float64()
	return printer.Sprintf("%s %.2f", ccy, f)
}

// dollarLabel renders "$107" for whole amounts and "$107.94" otherwise.
func dollarLabel(amt decimal.Decimal) string {
	if amt.Equal(amt.Truncate(0)) {
		return printer.Sprintf("$%d", amt.IntPart())
	}
	f, _ := amt.Round(2).Float64()
	return printer.Sprintf("$%.2f", f)
}

// records returns the object elements of r. Anything that is not an array
// yields nothing; gjson would otherwise wrap a scalar as a one-element array.
func records(r gjson.Result) []gjson.Result {
	if !r.IsArray() {
		return nil
	}
	var out []gjson.Result
	for _, v := range r.Array() {
		if v.IsObject() {
			out = append(out, v)
		}
	}
	return out
}

func urlList(r gjson.Result, limit int) []string {
	if !r.IsArray() {
		return nil
	}
	var out []string
	for _, v := range r.Array() {
		if len(out) == limit {
			break
		}
		switch {
		case v.Type == gjson.String && v.Str != "":
			out = append(out, v.Str)
		case v.IsObject() && v.Get("url").Type == gjson.String:
			out = append(out, v.Get("url").Str)
		}
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
