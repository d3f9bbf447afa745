package grills

import (
	"reflect"
	"testing"
)

func testLayout(t *testing.T, spec *layoutSpec) *layout {
	t.Helper()
	l, err := compileLayout(spec)
	if err != nil {
		t.Fatalf("compileLayout() error = %v", err)
	}
	return l
}

func TestLayoutParse(t *testing.T) {
	// Prefix, one probe temp, the conditional grill temp, two flags, a
	// counter byte and a duration. 15 bytes on the wire.
	l := testLayout(t, &layoutSpec{
		Prefix: "FE0B",
		Fields: []fieldSpec{
			{Key: "p1Temp", Type: "temp"},
			{Key: "grillSetTemp", AltKey: "grillTemp", Type: "condtemp"},
			{Key: "motorState", Type: "bool"},
			{Key: "isFahrenheit", Type: "bool"},
			{Key: "recipeStep", Type: "byte"},
			{Key: "recipeTime", Type: "time3"},
		},
	})

	tests := []struct {
		name    string
		message string
		want    State
	}{
		{
			name:    "set temp mode",
			message: "fe0b" + "010905" + "02020501" + "01" + "01" + "03" + "010203",
			want: State{
				"p1Temp":       195,
				"grillSetTemp": 225,
				"motorState":   true,
				"isFahrenheit": true,
				"recipeStep":   3,
				"recipeTime":   1*3600 + 2*60 + 3,
			},
		},
		{
			name:    "actual temp mode",
			message: "fe0b" + "010905" + "02020002" + "00" + "01" + "00" + "000000",
			want: State{
				"p1Temp":       195,
				"grillTemp":    220,
				"motorState":   false,
				"isFahrenheit": true,
				"recipeStep":   0,
				"recipeTime":   0,
			},
		},
		{
			name:    "disconnected probe",
			message: "fe0b" + "090600" + "02020501" + "00" + "01" + "00" + "000000",
			want: State{
				"p1Temp":       nil,
				"grillSetTemp": 225,
				"motorState":   false,
				"isFahrenheit": true,
				"recipeStep":   0,
				"recipeTime":   0,
			},
		},
		{
			name:    "trailing bytes ignored",
			message: "fe0b" + "010905" + "02020501" + "01" + "01" + "03" + "010203" + "deadbeef",
			want: State{
				"p1Temp":       195,
				"grillSetTemp": 225,
				"motorState":   true,
				"isFahrenheit": true,
				"recipeStep":   3,
				"recipeTime":   1*3600 + 2*60 + 3,
			},
		},
		{
			name:    "wrong prefix",
			message: "fe0c" + "010905" + "02020501" + "01" + "01" + "03" + "010203",
			want:    nil,
		},
		{
			name:    "truncated message",
			message: "fe0b" + "010905" + "020205",
			want:    nil,
		},
		{
			name:    "odd length hex",
			message: "fe0b0",
			want:    nil,
		},
		{
			name:    "not hex at all",
			message: "grill says hi",
			want:    nil,
		},
		{
			name:    "empty message",
			message: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.parse(tt.message, false)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLayoutParseCelsiusConversion(t *testing.T) {
	l := testLayout(t, &layoutSpec{
		Prefix: "FE0B",
		Fields: []fieldSpec{
			{Key: "p1Temp", Type: "temp"},
			{Key: "smokerActTemp", Type: "temp", NoConvert: true},
			{Key: "isFahrenheit", Type: "bool"},
		},
	})

	tests := []struct {
		name    string
		message string
		convert bool
		want    State
	}{
		{
			name:    "celsius flag converts",
			message: "fe0b" + "010000" + "020005" + "00",
			convert: true,
			want:    State{"p1Temp": 37, "smokerActTemp": 205, "isFahrenheit": false},
		},
		{
			name:    "fahrenheit flag leaves values alone",
			message: "fe0b" + "010000" + "020005" + "01",
			convert: true,
			want:    State{"p1Temp": 100, "smokerActTemp": 205, "isFahrenheit": true},
		},
		{
			name:    "board without conversion leaves values alone",
			message: "fe0b" + "010000" + "020005" + "00",
			convert: false,
			want:    State{"p1Temp": 100, "smokerActTemp": 205, "isFahrenheit": false},
		},
		{
			name:    "disconnected probe is not converted",
			message: "fe0b" + "090600" + "010500" + "00",
			convert: true,
			want:    State{"p1Temp": nil, "smokerActTemp": 150, "isFahrenheit": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.parse(tt.message, tt.convert)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFahrenheitToCelsius(t *testing.T) {
	tests := []struct {
		f    int
		want int
	}{
		{f: 100, want: 37},
		{f: 150, want: 65},
		{f: 205, want: 96},
		{f: 32, want: 0},
	}
	for _, tt := range tests {
		if got := fahrenheitToCelsius(tt.f); got != tt.want {
			t.Errorf("fahrenheitToCelsius(%d) = %d, want %d", tt.f, got, tt.want)
		}
	}
}

func TestCompileLayoutErrors(t *testing.T) {
	tests := []struct {
		name string
		spec *layoutSpec
	}{
		{
			name: "prefix not hex",
			spec: &layoutSpec{Prefix: "XXYY"},
		},
		{
			name: "prefix wrong length",
			spec: &layoutSpec{Prefix: "FE"},
		},
		{
			name: "unknown field type",
			spec: &layoutSpec{Prefix: "FE0B", Fields: []fieldSpec{{Key: "x", Type: "float"}}},
		},
		{
			name: "empty key",
			spec: &layoutSpec{Prefix: "FE0B", Fields: []fieldSpec{{Type: "temp"}}},
		},
		{
			name: "condtemp without alt key",
			spec: &layoutSpec{Prefix: "FE0B", Fields: []fieldSpec{{Key: "grillSetTemp", Type: "condtemp"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := compileLayout(tt.spec); err == nil {
				t.Error("compileLayout() error = nil, want error")
			}
		})
	}
}

func TestCompileTemplate(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		args     []int
		want     string
		wantArgc int
	}{
		{
			name:     "decimal digits",
			format:   "fe0501%d3ff",
			args:     []int{225},
			want:     "fe0501020205ff",
			wantArgc: 1,
		},
		{
			name:     "small value pads to three digits",
			format:   "fe0501%d3ff",
			args:     []int{5},
			want:     "fe0501000005ff",
			wantArgc: 1,
		},
		{
			name:     "large value keeps last three digits",
			format:   "fe0501%d3ff",
			args:     []int{1000},
			want:     "fe0501000000ff",
			wantArgc: 1,
		},
		{
			name:     "hex byte",
			format:   "fe0a01%hff",
			args:     []int{11},
			want:     "fe0a010bff",
			wantArgc: 1,
		},
		{
			name:     "hex byte max",
			format:   "fe0a01%hff",
			args:     []int{255},
			want:     "fe0a01ffff",
			wantArgc: 1,
		},
		{
			name:     "two placeholders",
			format:   "fe05%h%d3ff",
			args:     []int{2, 160},
			want:     "fe0502010600ff",
			wantArgc: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, argc, err := compileTemplate(tt.format)
			if err != nil {
				t.Fatalf("compileTemplate(%q) error = %v", tt.format, err)
			}
			if argc != tt.wantArgc {
				t.Errorf("compileTemplate(%q) argc = %d, want %d", tt.format, argc, tt.wantArgc)
			}
			cmd := &Command{Slug: "test", ops: ops, argc: argc}
			got, err := cmd.Hex(tt.args...)
			if err != nil {
				t.Fatalf("Hex(%v) error = %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("Hex(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestCompileTemplateErrors(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{name: "unknown placeholder", format: "fe05%x01ff"},
		{name: "bare percent at end", format: "fe0501%"},
		{name: "non-hex literal", format: "fe05zz01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := compileTemplate(tt.format); err == nil {
				t.Errorf("compileTemplate(%q) error = nil, want error", tt.format)
			}
		})
	}
}

func TestDigits3(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{n: 0, want: "000000"},
		{n: 5, want: "000005"},
		{n: 85, want: "000805"},
		{n: 225, want: "020205"},
		{n: 450, want: "040500"},
		{n: 1000, want: "000000"},
	}
	for _, tt := range tests {
		if got := digits3(tt.n); got != tt.want {
			t.Errorf("digits3(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
