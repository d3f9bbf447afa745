package grills

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// Field types understood by the layout engine. Every field is fixed-width;
// a layout is the 2-byte message prefix followed by its fields in order.
const (
	fieldTemp     = "temp"     // 3 digit bytes: hundreds, tens, ones
	fieldCondTemp = "condtemp" // a temp plus a mode byte selecting the key
	fieldBool     = "bool"     // 1 byte, nonzero is true
	fieldByte     = "byte"     // 1 byte, raw integer
	fieldTime3    = "time3"    // 3 bytes: hours, minutes, seconds
)

var fieldWidths = map[string]int{
	fieldTemp:     3,
	fieldCondTemp: 4,
	fieldBool:     1,
	fieldByte:     1,
	fieldTime3:    3,
}

// absentTemp is the wire sentinel for "no probe connected".
const absentTemp = 960

// isFahrenheitKey gates the per-board Fahrenheit to Celsius conversion.
const isFahrenheitKey = "isFahrenheit"

type fieldSpec struct {
	Key string `json:"key"`
	// AltKey is the key stored when a condtemp mode byte is not 1.
	AltKey string `json:"alt_key,omitempty"`
	Type   string `json:"type"`
	// NoConvert exempts a temp from the board's F-to-C conversion. The
	// vendor definitions skip p4Temp and smokerActTemp on some boards.
	NoConvert bool `json:"no_convert,omitempty"`
}

type layoutSpec struct {
	Prefix string      `json:"prefix"`
	Fields []fieldSpec `json:"fields"`
}

// layout is one compiled message layout.
type layout struct {
	prefix []byte
	fields []fieldSpec
	width  int // minimum message length in bytes, prefix included
}

func compileLayout(spec *layoutSpec) (*layout, error) {
	if spec == nil {
		return nil, nil
	}
	prefix, err := hex.DecodeString(spec.Prefix)
	if err != nil || len(prefix) != 2 {
		return nil, fmt.Errorf("layout prefix %q is not two hex bytes", spec.Prefix)
	}
	l := &layout{prefix: prefix, fields: spec.Fields, width: len(prefix)}
	for _, f := range spec.Fields {
		w, ok := fieldWidths[f.Type]
		if !ok {
			return nil, fmt.Errorf("field %q has unknown type %q", f.Key, f.Type)
		}
		if f.Key == "" {
			return nil, fmt.Errorf("layout field with empty key")
		}
		if f.Type == fieldCondTemp && f.AltKey == "" {
			return nil, fmt.Errorf("condtemp field %q needs alt_key", f.Key)
		}
		l.width += w
	}
	return l, nil
}

// parse decodes one hexadecimal message against the layout. A nil State
// means the message is not for this layout (wrong prefix) or malformed;
// callers treat both as "no update". Bytes past the last field are ignored.
func (l *layout) parse(message string, convertToCelsius bool) State {
	if l == nil {
		return nil
	}
	data, err := hex.DecodeString(message)
	if err != nil || len(data) < l.width || !bytes.Equal(data[:2], l.prefix) {
		return nil
	}

	st := State{}
	convertible := make([]string, 0, len(l.fields))
	fahrenheit := true
	pos := 2
	for _, f := range l.fields {
		switch f.Type {
		case fieldTemp:
			if t, ok := readTemp(data, pos); ok {
				st[f.Key] = t
				if !f.NoConvert {
					convertible = append(convertible, f.Key)
				}
			} else {
				st[f.Key] = nil
			}
			pos += 3
		case fieldCondTemp:
			key := f.AltKey
			if data[pos+3] == 1 {
				key = f.Key
			}
			if t, ok := readTemp(data, pos); ok {
				st[key] = t
				if !f.NoConvert {
					convertible = append(convertible, key)
				}
			} else {
				st[key] = nil
			}
			pos += 4
		case fieldBool:
			v := data[pos] != 0
			st[f.Key] = v
			if f.Key == isFahrenheitKey {
				fahrenheit = v
			}
			pos++
		case fieldByte:
			st[f.Key] = int(data[pos])
			pos++
		case fieldTime3:
			st[f.Key] = int(data[pos])*3600 + int(data[pos+1])*60 + int(data[pos+2])
			pos += 3
		}
	}

	if convertToCelsius && !fahrenheit {
		for _, key := range convertible {
			st[key] = fahrenheitToCelsius(st[key].(int))
		}
	}
	return st
}

func readTemp(data []byte, pos int) (int, bool) {
	t := int(data[pos])*100 + int(data[pos+1])*10 + int(data[pos+2])
	if t == absentTemp {
		return 0, false
	}
	return t, true
}

func fahrenheitToCelsius(f int) int {
	return int(math.Floor(float64(f-32) / 1.8))
}

// Command templates.
//
// A command is either a fixed hexadecimal string or a format template with
// placeholders consuming numeric arguments left to right:
//
//	%d3  three decimal digit bytes, e.g. 225 -> "020205"
//	%h   one hex byte, e.g. 11 -> "0b"

type opKind int

const (
	opLiteral opKind = iota
	opDigits
	opHexByte
)

type cmdOp struct {
	kind opKind
	text string
}

func compileTemplate(format string) ([]cmdOp, int, error) {
	var ops []cmdOp
	var lit strings.Builder
	argc := 0
	flush := func() {
		if lit.Len() > 0 {
			ops = append(ops, cmdOp{kind: opLiteral, text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(format); {
		if format[i] != '%' {
			if !isHexDigit(format[i]) {
				return nil, 0, fmt.Errorf("template %q has non-hex literal byte %q", format, format[i])
			}
			lit.WriteByte(format[i])
			i++
			continue
		}
		switch {
		case strings.HasPrefix(format[i:], "%d3"):
			flush()
			ops = append(ops, cmdOp{kind: opDigits})
			argc++
			i += 3
		case strings.HasPrefix(format[i:], "%h"):
			flush()
			ops = append(ops, cmdOp{kind: opHexByte})
			argc++
			i += 2
		default:
			return nil, 0, fmt.Errorf("template %q has unknown placeholder", format)
		}
	}
	flush()
	return ops, argc, nil
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// digits3 renders the last three decimal digits of n as three digit bytes,
// matching the firmware formatDecimal/formatHex pairing.
func digits3(n int) string {
	s := fmt.Sprintf("%03d", n)
	s = s[len(s)-3:]
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		fmt.Fprintf(&b, "%02x", s[i]-'0')
	}
	return b.String()
}

func hexByte(n int) string {
	return fmt.Sprintf("%02x", byte(n))
}
