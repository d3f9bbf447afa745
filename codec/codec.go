// Package codec implements the byte transform Pit Boss firmware uses to
// obscure the grill password in authenticated RPC calls.
//
// The transform is a keyed XOR walk whose key mutates as it goes: every
// position XORs the next key slot with the ciphertext byte and adds the
// position index. Encoding prepends random padding terminated by a 0xFF
// marker; decoding strips everything through the first decoded 0xFF.
// Authenticated calls derive a rotating key from the device's self-reported
// uptime (TimedKey) so both ends agree on the key without synchronized
// clocks.
package codec

import (
	"bytes"
	"crypto/rand"
	"errors"
	"math"
)

// stockKey is the factory key burned into PB firmware.
var stockKey = []byte{0x8F, 0x80, 0x19, 0xCF, 0x77, 0x6C, 0xFE, 0xB7}

// paddingLen is the number of random bytes prepended before the 0xFF marker.
const paddingLen = 16

// Cipher holds a base key for the password codec. Every operation works on
// its own copy of the key, so a Cipher is safe for concurrent use and can be
// shared across device sessions.
type Cipher struct {
	key []byte
}

// New returns a Cipher using the given base key. An empty key is a caller
// error and fails immediately.
func New(key []byte) (*Cipher, error) {
	if len(key) == 0 {
		return nil, errors.New("codec: empty key")
	}
	c := &Cipher{key: make([]byte, len(key))}
	copy(c.key, key)
	return c, nil
}

// Default returns a Cipher keyed with the stock firmware key.
func Default() *Cipher {
	c, err := New(stockKey)
	if err != nil {
		panic(err) // unreachable: the stock key is non-empty
	}
	return c
}

// Encode obscures data: 16 random pad bytes (never 0xFF) and a single 0xFF
// marker are prepended, then the combined buffer is XOR-walked against a
// mutating key copy. The key slot after position i is XORed with the OUTPUT
// byte and incremented by i.
func (c *Cipher) Encode(data []byte) []byte {
	buf := make([]byte, 0, paddingLen+1+len(data))
	buf = append(buf, padding()...)
	buf = append(buf, 0xFF)
	buf = append(buf, data...)

	key := c.keyCopy()
	out := make([]byte, len(buf))
	for i, b := range buf {
		m := b ^ key[i%len(key)]
		out[i] = m
		k2 := (i + 1) % len(key)
		key[k2] = byte(int(key[k2]^m) + i)
	}
	return out
}

// Decode reverses Encode. The key slot after position i is XORed with the
// INPUT byte here; that is the same ciphertext byte Encode mutated with, so
// both directions replay an identical key schedule. Everything through the
// first decoded 0xFF is stripped; input that decodes without a marker is
// returned whole rather than rejected.
func (c *Cipher) Decode(data []byte) []byte {
	key := c.keyCopy()
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
		k2 := (i + 1) % len(key)
		key[k2] = byte(int(key[k2]^b) + i)
	}
	if idx := bytes.IndexByte(out, 0xFF); idx >= 0 {
		return out[idx+1:]
	}
	return out
}

// TimedKey derives the rotating key for an uptime reading, matching
// getCodecKey() in the PB firmware. Uptime is bucketed into 10-second
// windows behind a 5-second grace offset, so client and device land on the
// same key as long as their uptime views are within a few seconds.
func (c *Cipher) TimedKey(uptime float64) []byte {
	n := int(math.Floor(math.Max(uptime-5, 0) / 10))
	key := c.keyCopy()
	ret := make([]byte, 0, len(key))
	for len(key) > 1 {
		idx := n % len(key)
		v := int(key[idx])
		key = append(key[:idx], key[idx+1:]...)
		ret = append(ret, byte(v^n))
		n = (n*v + v) & 0xFF
	}
	return append(ret, key[0])
}

// Timed returns a Cipher keyed with TimedKey(uptime).
func (c *Cipher) Timed(uptime float64) *Cipher {
	return &Cipher{key: c.TimedKey(uptime)}
}

func (c *Cipher) keyCopy() []byte {
	key := make([]byte, len(c.key))
	copy(key, c.key)
	return key
}

// padding returns paddingLen random bytes in [0, 254]; 0xFF is reserved for
// the marker.
func padding() []byte {
	pad := make([]byte, paddingLen)
	rand.Read(pad)
	for i, b := range pad {
		pad[i] = b % 0xFF
	}
	return pad
}
