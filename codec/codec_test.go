package codec

import (
	"bytes"
	"testing"
)

func TestNewRejectsEmptyKey(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) returned no error")
	}
	if _, err := New([]byte{}); err == nil {
		t.Fatal("New(empty) returned no error")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		key  []byte
	}{
		{name: "short ascii", data: []byte("foobar")},
		{name: "empty payload", data: []byte{}},
		{name: "single byte", data: []byte{0x42}},
		{name: "payload containing 0xff", data: []byte{0xFF, 0x00, 0xFF, 0x7F}},
		{name: "longer than key cycle", data: bytes.Repeat([]byte{0xA5, 0x01}, 200)},
		{name: "two byte key", data: []byte("grill password"), key: []byte{0x01, 0xFE}},
		{name: "single byte key", data: []byte("grill password"), key: []byte{0x99}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			if tt.key != nil {
				var err error
				c, err = New(tt.key)
				if err != nil {
					t.Fatalf("New(%x): %v", tt.key, err)
				}
			}
			enc := c.Encode(tt.data)
			if want := len(tt.data) + paddingLen + 1; len(enc) != want {
				t.Errorf("Encode length = %d, want %d", len(enc), want)
			}
			got := c.Decode(enc)
			if !bytes.Equal(got, tt.data) {
				t.Errorf("Decode(Encode(%x)) = %x, want %x", tt.data, got, tt.data)
			}
		})
	}
}

func TestDecodeWithoutMarker(t *testing.T) {
	c := Default()
	enc := c.Encode([]byte("foobar"))
	// The first 16 ciphertext bytes decode to the random padding, none of
	// which is 0xFF, so a truncated buffer has no marker and is returned
	// whole rather than rejected.
	got := c.Decode(enc[:paddingLen])
	if len(got) != paddingLen {
		t.Fatalf("Decode without marker returned %d bytes, want %d", len(got), paddingLen)
	}
	for i, b := range got {
		if b == 0xFF {
			t.Errorf("decoded padding byte %d is 0xFF", i)
		}
	}
}

func TestPasswordFlow(t *testing.T) {
	// Simulates the full device password lifecycle: PB.SetDevicePassword
	// carries the stock-key encoding, which the firmware decodes and saves.
	// Authenticated calls then carry a time-keyed encoding the firmware
	// decodes with its own uptime, which may differ by a few seconds.
	c := Default()
	wire := c.Encode([]byte("foobar"))
	saved := c.Decode(wire)
	param := c.Timed(11.0).Encode([]byte("foobar"))
	check := c.Timed(12.0).Decode(param)
	if !bytes.Equal(saved, check) {
		t.Fatalf("saved password %x does not match authenticated check %x", saved, check)
	}
}

func TestTimedKeyVectors(t *testing.T) {
	tests := []struct {
		name   string
		uptime float64
		want   []byte
	}{
		// First window: floor(max(u-5,0)/10) == 0 for all uptimes below 15.
		{name: "first window", uptime: 11.0, want: []byte{0x8F, 0xF8, 0x70, 0x7E, 0x92, 0x5B, 0xCC, 0x19}},
		{name: "zero uptime", uptime: 0, want: []byte{0x8F, 0xF8, 0x70, 0x7E, 0x92, 0x5B, 0xCC, 0x19}},
		{name: "third window", uptime: 25.0, want: []byte{0x1B, 0xB5, 0xA7, 0x67, 0x8F, 0x38, 0x87, 0x6C}},
	}
	c := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.TimedKey(tt.uptime)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("TimedKey(%v) = %x, want %x", tt.uptime, got, tt.want)
			}
		})
	}
}

func TestTimedKeyBuckets(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		same bool
	}{
		{name: "one second apart", a: 11.0, b: 12.0, same: true},
		{name: "window boundary", a: 14.9, b: 15.0, same: false},
		{name: "grace offset clamps to zero", a: 0, b: 4.9, same: true},
		{name: "separate windows", a: 20, b: 40, same: false},
		{name: "deep uptime same window", a: 127, b: 128, same: true},
	}
	c := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := c.TimedKey(tt.a)
			kb := c.TimedKey(tt.b)
			if got := bytes.Equal(ka, kb); got != tt.same {
				t.Errorf("TimedKey(%v) vs TimedKey(%v): equal = %v, want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}
}

func TestTimedKeyLength(t *testing.T) {
	c := Default()
	for _, uptime := range []float64{0, 5, 63, 1e6} {
		if got := len(c.TimedKey(uptime)); got != 8 {
			t.Errorf("TimedKey(%v) length = %d, want 8", uptime, got)
		}
	}
}
