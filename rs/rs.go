// Package rs implements the two Reed-Solomon codes of the CIRC scheme:
// C1 (32,28) with parity appended at the end of the codeword and
// C2 (28,24) with parity in the middle (columns 12..15), both over
// GF(2^8) with roots α^0..α^3. It also provides the decoding helpers
// used by the analyzer: syndrome vectors, Forney erasure folding,
// the Berlekamp-Massey error locator and Chien search.
package rs

import "github.com/grumpycoders/iec-60908/gf"

// ParityCount is the number of check symbols both codes carry.
const ParityCount = 4

const (
	// C1MessageSize is the input length of the (32,28) code.
	C1MessageSize = 28
	// C1CodewordSize is the full length of a C1 codeword.
	C1CodewordSize = C1MessageSize + ParityCount
	// C2MessageSize is the input length of the (28,24) code.
	C2MessageSize = 24
	// C2CodewordSize is the full length of a C2 codeword.
	C2CodewordSize = C2MessageSize + ParityCount
)

// c1s[i][j] is the log of the factor message byte i is scaled by for
// check symbol j: parity[j] ^= α^(log(msg[i]) + c1s[i][j]). The matrix
// solves Σ c_i·α^(i·k) = 0 for k=0..3 with parity at codeword
// positions 28..31.
var c1s = [C1MessageSize][ParityCount]byte{
	{165, 118, 232, 55}, {61, 168, 179, 96}, {102, 137, 47, 116}, {122, 121, 214, 182},
	{188, 127, 184, 80}, {86, 224, 221, 81}, {87, 67, 8, 63}, {69, 40, 78, 77},
	{83, 56, 85, 181}, {187, 178, 209, 41}, {47, 136, 185, 19}, {25, 49, 196, 48},
	{54, 72, 154, 104}, {110, 194, 15, 155}, {161, 38, 180, 59}, {65, 136, 71, 16},
	{22, 246, 120, 113}, {119, 178, 205, 137}, {143, 115, 232, 62}, {68, 108, 138, 58},
	{64, 85, 183, 16}, {22, 130, 209, 110}, {116, 136, 47, 184}, {190, 78, 156, 125},
	{131, 34, 235, 116}, {122, 186, 147, 151}, {157, 180, 47, 66}, {72, 243, 69, 249},
}

// c2s is the C2 companion of c1s, with parity at codeword positions
// 12..15 so the check symbols land between the two payload halves.
var c2s = [C2MessageSize][ParityCount]byte{
	{22, 246, 120, 113}, {119, 178, 205, 137}, {143, 115, 232, 62}, {68, 108, 138, 58},
	{64, 85, 183, 16}, {22, 130, 209, 110}, {116, 136, 47, 184}, {190, 78, 156, 125},
	{131, 34, 235, 116}, {122, 186, 147, 151}, {157, 180, 47, 66}, {72, 243, 69, 249},
	{6, 78, 249, 75}, {81, 59, 189, 163}, {169, 162, 198, 131}, {137, 253, 49, 143},
	{149, 177, 96, 205}, {211, 71, 157, 134}, {140, 236, 154, 43}, {49, 213, 112, 88},
	{94, 171, 138, 95}, {101, 13, 148, 173}, {179, 244, 214, 152}, {158, 162, 30, 58},
}

// C1Parity computes check symbol n of the (32,28) code for a 28-byte
// message. Any other length is a programming error.
func C1Parity(msg []byte, n int) byte {
	if len(msg) != C1MessageSize {
		panic("rs: C1 message must be 28 bytes")
	}
	var out byte
	for i, m := range msg {
		if m != 0 {
			out ^= gf.Exp(gf.Log(m) + int(c1s[i][n]))
		}
	}
	return out
}

// C2Parity computes check symbol n of the (28,24) code for a 24-byte
// message. Any other length is a programming error.
func C2Parity(msg []byte, n int) byte {
	if len(msg) != C2MessageSize {
		panic("rs: C2 message must be 24 bytes")
	}
	var out byte
	for i, m := range msg {
		if m != 0 {
			out ^= gf.Exp(gf.Log(m) + int(c2s[i][n]))
		}
	}
	return out
}

// EncodeC1 computes all four C1 check symbols.
func EncodeC1(msg []byte) [ParityCount]byte {
	var out [ParityCount]byte
	for n := range out {
		out[n] = C1Parity(msg, n)
	}
	return out
}

// EncodeC2 computes all four C2 check symbols.
func EncodeC2(msg []byte) [ParityCount]byte {
	var out [ParityCount]byte
	for n := range out {
		out[n] = C2Parity(msg, n)
	}
	return out
}

// generators caches generator polynomials by check-symbol count.
// Keys are tiny, so a fixed array of optional entries does.
var generators [33]Poly

func generator(nsyms int) Poly {
	if g := generators[nsyms]; g != nil {
		return g
	}
	g := Poly{1}
	for i := 0; i < nsyms; i++ {
		g = g.Mul(Poly{gf.Exp(i), 1})
	}
	generators[nsyms] = g
	return g
}

// Encode computes nsyms check symbols for msg by polynomial division
// and returns them in the order they are appended to the codeword.
// The codeword msg‖parity has roots α^0..α^(nsyms-1) with its first
// byte as the highest-order coefficient.
func Encode(msg []byte, nsyms int) []byte {
	g := generator(nsyms)
	rem := make([]byte, nsyms)
	for _, m := range msg {
		feedback := m ^ rem[nsyms-1]
		copy(rem[1:], rem[:nsyms-1])
		rem[0] = 0
		if feedback != 0 {
			fl := gf.Log(feedback)
			for j := 0; j < nsyms; j++ {
				if g[j] != 0 {
					rem[j] ^= gf.Exp(gf.Log(g[j]) + fl)
				}
			}
		}
	}
	out := make([]byte, nsyms)
	for j := range out {
		out[j] = rem[nsyms-1-j]
	}
	return out
}

// Syndromes evaluates the codeword at α^0..α^(nsyms-1):
// S_k = Σ_i c_i·α^(i·k). An all-zero vector means no detectable error.
func Syndromes(cw []byte, nsyms int) []byte {
	out := make([]byte, nsyms)
	for k := range out {
		var s byte
		for i, c := range cw {
			if c != 0 {
				s ^= gf.Exp(gf.Log(c) + i*k)
			}
		}
		out[k] = s
	}
	return out
}

// ForneySyndromes folds known erasure positions into the syndrome
// vector: S'(x) = S(x)·Π(1 + α^e·x) truncated to the original length.
// The first len(erasures) entries of the result are consumed by the
// erasures; the remainder feeds the error locator.
func ForneySyndromes(synd []byte, erasures []int) []byte {
	s := Poly(synd)
	for _, e := range erasures {
		s = s.Mul(Poly{1, gf.Exp(e)})
	}
	return s[:len(synd)]
}

// ErrorLocator runs Berlekamp-Massey over the syndrome vector and
// returns the error-locator polynomial Λ(x).
func ErrorLocator(synd []byte) Poly {
	c := Poly{1}
	b := Poly{1}
	var l int
	m := 1
	prev := byte(1)
	for n := range synd {
		d := synd[n]
		for i := 1; i <= l; i++ {
			if v := c.Coefficient(i); v != 0 {
				d ^= gf.Mul(v, synd[n-i])
			}
		}
		switch {
		case d == 0:
			m++
		case 2*l <= n:
			t := c
			c = c.Add(b.MulMonomial(m, gf.Mul(d, gf.Inv(prev))))
			l = n + 1 - l
			b = t
			prev = d
			m = 1
		default:
			c = c.Add(b.MulMonomial(m, gf.Mul(d, gf.Inv(prev))))
			m++
		}
	}
	return c[:c.Degree()+1]
}

// ChienSearch returns the codeword positions whose inverse locators are
// roots of Λ, scanning α^0..α^(n-1).
func ChienSearch(loc Poly, n int) []int {
	var out []int
	for i := 0; i < n; i++ {
		if loc.Eval(gf.Exp(-i)) == 0 {
			out = append(out, i)
		}
	}
	return out
}
