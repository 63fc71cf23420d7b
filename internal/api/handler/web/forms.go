package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/backtrack/internal/core"
)

const dateLayout = "2006-01-02"

// form wraps a parsed POST body and collects the first conversion error.
type form struct {
	r   *http.Request
	err error
}

func parseForm(r *http.Request) (*form, error) {
	if err := r.ParseForm(); err != nil {
		return nil, core.Invalid("malformed form: %v", err)
	}
	return &form{r: r}, nil
}

func (f *form) str(key string) string {
	return strings.TrimSpace(f.r.PostFormValue(key))
}

func (f *form) optional(key string) *string {
	v := f.str(key)
	if v == "" {
		return nil
	}
	return &v
}

func (f *form) fail(key string, err error) {
	if f.err == nil {
		f.err = core.Invalid("%s: %v", key, err)
	}
}

func (f *form) decimal(key string) decimal.Decimal {
	v := f.str(key)
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		f.fail(key, fmt.Errorf("not a number"))
	}
	return d
}

func (f *form) nullDecimal(key string) decimal.NullDecimal {
	if f.str(key) == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(f.decimal(key))
}

func (f *form) intPtr(key string) *int {
	v := f.str(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f.fail(key, fmt.Errorf("not an integer"))
		return nil
	}
	return &n
}

func (f *form) date(key string) time.Time {
	v := f.str(key)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		f.fail(key, fmt.Errorf("expected YYYY-MM-DD"))
	}
	return t
}

func (f *form) bool(key string) bool {
	switch f.str(key) {
	case "on", "true", "1":
		return true
	}
	return false
}

// lines splits a textarea into trimmed, non-empty lines.
func (f *form) lines(key string) []string {
	var out []string
	for _, l := range strings.Split(f.r.PostFormValue(key), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (f *form) values(key string) []string {
	return f.r.PostForm[key]
}
