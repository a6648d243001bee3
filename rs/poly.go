package rs

import "github.com/grumpycoders/iec-60908/gf"

// Poly is a polynomial over GF(2^8); index i holds the coefficient of x^i.
type Poly []byte

// Degree returns the degree of p, ignoring trailing zero coefficients.
func (p Poly) Degree() int {
	for i := len(p) - 1; i > 0; i-- {
		if p[i] != 0 {
			return i
		}
	}
	return 0
}

// Coefficient returns the coefficient of x^i, zero beyond the stored length.
func (p Poly) Coefficient(i int) byte {
	if i < 0 || i >= len(p) {
		return 0
	}
	return p[i]
}

// Add returns p + q.
func (p Poly) Add(q Poly) Poly {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make(Poly, n)
	for i := range out {
		out[i] = gf.Add(p.Coefficient(i), q.Coefficient(i))
	}
	return out
}

// Scale returns c·p.
func (p Poly) Scale(c byte) Poly {
	out := make(Poly, len(p))
	for i, v := range p {
		out[i] = gf.Mul(v, c)
	}
	return out
}

// MulMonomial returns p · c·x^d.
func (p Poly) MulMonomial(d int, c byte) Poly {
	out := make(Poly, len(p)+d)
	for i, v := range p {
		out[i+d] = gf.Mul(v, c)
	}
	return out
}

// Mul returns p · q.
func (p Poly) Mul(q Poly) Poly {
	out := make(Poly, len(p)+len(q)-1)
	for i, a := range p {
		if a == 0 {
			continue
		}
		for j, b := range q {
			out[i+j] ^= gf.Mul(a, b)
		}
	}
	return out
}

// Eval evaluates p at x by direct Horner recurrence. Zero coefficients
// are handled like any other, so degenerate syndromes evaluate exactly.
func (p Poly) Eval(x byte) byte {
	var v byte
	for i := len(p) - 1; i >= 0; i-- {
		v = gf.Mul(v, x) ^ p[i]
	}
	return v
}
