package message

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasttemplate"

	"github.com/zgpcy/cost-report/internal/provider"
)

// Placeholder delimiters
const (
	startTag = "{"
	endTag   = "}"
)

// Placeholder names available to message templates
const (
	FieldYear     = "year"
	FieldMonth    = "month"
	FieldDay      = "day"
	FieldCost     = "cost"
	FieldForecast = "forecast"
	FieldNServer  = "nserver"
)

// specPattern matches [0][width][.precision][type]
var specPattern = regexp.MustCompile(`^(0)?([1-9][0-9]*)?(?:\.([0-9]+))?([dfegs])?$`)

// value is either an integer or a float field
type value struct {
	i       int64
	f       float64
	isFloat bool
}

// Render substitutes every {name} or {name:spec} placeholder in tpl with
// the snapshot values and today's date. It does not modify its inputs, so
// rendering the same arguments twice yields the same string.
func Render(tpl string, snap provider.Snapshot, today time.Time) (string, error) {
	values := map[string]value{
		FieldYear:     {i: int64(today.Year())},
		FieldMonth:    {i: int64(today.Month())},
		FieldDay:      {i: int64(today.Day())},
		FieldCost:     {f: snap.ActualSpend, isFloat: true},
		FieldForecast: {f: snap.ForecastSpend, isFloat: true},
		FieldNServer:  {i: int64(snap.InstanceCount)},
	}

	return fasttemplate.ExecuteFuncStringWithErr(tpl, startTag, endTag, func(w io.Writer, tag string) (int, error) {
		name, spec, _ := strings.Cut(tag, ":")
		v, ok := values[name]
		if !ok {
			return 0, &TemplateError{Placeholder: name}
		}
		s, err := format(v, spec)
		if err != nil {
			return 0, &FormatError{Placeholder: name, Spec: spec, Cause: err}
		}
		return w.Write([]byte(s))
	})
}

// format renders v according to spec
func format(v value, spec string) (string, error) {
	m := specPattern.FindStringSubmatch(spec)
	if m == nil {
		return "", fmt.Errorf("invalid format spec %q", spec)
	}
	zero, width, precision, verb := m[1] != "", m[2], m[3], m[4]

	switch verb {
	case "s":
		return "", fmt.Errorf("format code 's' does not apply to numbers")
	case "d":
		if v.isFloat {
			return "", fmt.Errorf("format code 'd' does not apply to a float")
		}
		if precision != "" {
			return "", fmt.Errorf("precision not allowed with format code 'd'")
		}
	case "f", "e", "g":
	case "":
		if !v.isFloat {
			if precision != "" {
				return "", fmt.Errorf("precision not allowed in integer format")
			}
			verb = "d"
		} else if precision != "" {
			verb = "g"
		} else {
			return pad(shortest(v.f), width, zero), nil
		}
	}

	if verb == "g" && precision == "" {
		precision = "6"
	}

	layout := "%"
	if zero {
		layout += "0"
	}
	layout += width
	if precision != "" {
		layout += "." + precision
	}
	layout += verb

	if verb == "d" {
		return fmt.Sprintf(layout, v.i), nil
	}
	f := v.f
	if !v.isFloat {
		f = float64(v.i)
	}
	return fmt.Sprintf(layout, f), nil
}

// shortest formats f with the fewest digits that round-trip, keeping at
// least one decimal: 12.5 -> "12.5", 20 -> "20.0"
func shortest(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// pad right-aligns s to width, with zeros after the sign when zero is set
func pad(s, width string, zero bool) string {
	if width == "" {
		return s
	}
	n, _ := strconv.Atoi(width)
	if len(s) >= n {
		return s
	}
	fill := n - len(s)
	if !zero {
		return strings.Repeat(" ", fill) + s
	}
	if strings.HasPrefix(s, "-") {
		return "-" + strings.Repeat("0", fill) + s[1:]
	}
	return strings.Repeat("0", fill) + s
}
