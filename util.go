package main

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Side is one half of the field, and the team defending it
type Side int

const (
	SideBottom Side = iota
	SideTop
	SideNone
)

func (s Side) String() string {
	switch s {
	case SideBottom:
		return "bottom"
	case SideTop:
		return "top"
	default:
		return "none"
	}
}

// Opposite returns the other half; SideNone has no opposite
func (s Side) Opposite() Side {
	switch s {
	case SideBottom:
		return SideTop
	case SideTop:
		return SideBottom
	default:
		return SideNone
	}
}

// Label is the upper-case form used in chat
func (s Side) Label() string {
	return strings.ToUpper(s.String())
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	v, err := parseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Side) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(s.String())
}

func (s *Side) DecodeMsgpack(dec *msgpack.Decoder) error {
	str, err := dec.DecodeString()
	if err != nil {
		return err
	}
	v, err := parseSide(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func parseSide(str string) (Side, error) {
	switch str {
	case "bottom":
		return SideBottom, nil
	case "top":
		return SideTop, nil
	case "none", "":
		return SideNone, nil
	}
	return SideNone, fmt.Errorf("unknown side %q", str)
}

// Vec is a 2D point or velocity
type Vec struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateCode returns a random lower-case base36 string of length n
func GenerateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b)
}
