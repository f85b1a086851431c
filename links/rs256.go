package links

// Galois-field arithmetic and a narrow-sense systematic Reed-Solomon
// codec over GF(256) (primitive polynomial 0x11d, generator element
// 2), implementing true blind error correction: locating and
// repairing byte errors from the received codeword alone, with no
// erasure-position side channel. This is the same guarantee the
// original Rust implementation gets from its reed-solomon crate
// (Decoder::new(6).correct(&buf, None), Berlekamp-Massey decoding with
// no known erasure positions) — klauspost/reedsolomon's matrix-based
// erasure code cannot provide it, since it can only reconstruct shards
// whose loss positions are already known to the caller.

const (
	gfPrimePoly = 0x11d
	gfGen       = 2
)

var (
	gfExpTable [510]byte
	gfLogTable [256]byte
)

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		gfExpTable[i] = byte(x)
		gfLogTable[byte(x)] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= gfPrimePoly
		}
	}
	for i := 255; i < 510; i++ {
		gfExpTable[i] = gfExpTable[i-255]
	}
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExpTable[int(gfLogTable[a])+int(gfLogTable[b])]
}

func gfDiv(a, b byte) byte {
	if a == 0 {
		return 0
	}
	return gfExpTable[(int(gfLogTable[a])-int(gfLogTable[b])+255)%255]
}

func gfPow(a byte, n int) byte {
	if a == 0 {
		if n == 0 {
			return 1
		}
		return 0
	}
	return gfExpTable[(int(gfLogTable[a])*n)%255]
}

func gfInverse(a byte) byte {
	return gfExpTable[255-int(gfLogTable[a])]
}

// Every polynomial below is stored in descending-degree order: index 0
// is the highest-order coefficient, matching how a codeword's own
// bytes are laid out (data first, parity last).

func polyEval(poly []byte, x byte) byte {
	var y byte
	for _, c := range poly {
		y = gfMul(y, x) ^ c
	}
	return y
}

func polyMul(p, q []byte) []byte {
	r := make([]byte, len(p)+len(q)-1)
	for i, pi := range p {
		if pi == 0 {
			continue
		}
		for j, qj := range q {
			r[i+j] ^= gfMul(pi, qj)
		}
	}
	return r
}

func polyScale(p []byte, x byte) []byte {
	r := make([]byte, len(p))
	for i, c := range p {
		r[i] = gfMul(c, x)
	}
	return r
}

// polyAdd XORs two polynomials, right-aligning them on their constant
// term so a length mismatch doesn't shift either operand.
func polyAdd(p, q []byte) []byte {
	size := len(p)
	if len(q) > size {
		size = len(q)
	}
	r := make([]byte, size)
	for i, c := range p {
		r[i+size-len(p)] = c
	}
	for i, c := range q {
		r[i+size-len(q)] ^= c
	}
	return r
}

// rsGenerator builds g(x) = product_{i=0}^{nsym-1} (x - alpha^i), the
// generator polynomial a systematic RS(k+nsym, k) encoding divides by.
func rsGenerator(nsym int) []byte {
	g := []byte{1}
	for i := 0; i < nsym; i++ {
		g = polyMul(g, []byte{1, gfPow(gfGen, i)})
	}
	return g
}

// rsEncode appends nsym Reed-Solomon parity bytes to data via
// synthetic polynomial division by rsGenerator(nsym).
func rsEncode(data []byte, nsym int) []byte {
	gen := rsGenerator(nsym)
	buf := make([]byte, len(data)+nsym)
	copy(buf, data)
	for i := 0; i < len(data); i++ {
		coef := buf[i]
		if coef == 0 {
			continue
		}
		for j := 1; j < len(gen); j++ {
			buf[i+j] ^= gfMul(gen[j], coef)
		}
	}
	copy(buf, data)
	return buf
}

// errPacketUncorrectable is an internal sentinel rsDecode uses to signal
// that a codeword has more errors than nsym/2 can blindly locate and
// repair; callers translate it to ErrPacketCorrupt.
var errPacketUncorrectable = newUncorrectableError()

func newUncorrectableError() error { return errUncorrectable{} }

type errUncorrectable struct{}

func (errUncorrectable) Error() string { return "reed-solomon: too many errors to correct blindly" }

// rsDecode corrects up to nsym/2 byte errors in codeword with no prior
// knowledge of their positions, via syndrome computation,
// Berlekamp-Massey error-location, Chien search and the Forney
// algorithm, and returns the leading len(codeword)-nsym data bytes.
func rsDecode(codeword []byte, nsym int) ([]byte, error) {
	n := len(codeword)
	k := n - nsym

	synd := make([]byte, nsym)
	var synSum byte
	for i := 0; i < nsym; i++ {
		synd[i] = polyEval(codeword, gfPow(gfGen, i))
		synSum |= synd[i]
	}
	if synSum == 0 {
		return append([]byte(nil), codeword[:k]...), nil
	}

	errLoc := []byte{1}
	oldLoc := []byte{1}
	for i := 0; i < nsym; i++ {
		delta := synd[i]
		for j := 1; j < len(errLoc); j++ {
			delta ^= gfMul(errLoc[len(errLoc)-1-j], synd[i-j])
		}
		oldLoc = append(oldLoc, 0)
		if delta != 0 {
			if len(oldLoc) > len(errLoc) {
				newLoc := polyScale(oldLoc, delta)
				oldLoc = polyScale(errLoc, gfInverse(delta))
				errLoc = newLoc
			}
			errLoc = polyAdd(errLoc, polyScale(oldLoc, delta))
		}
	}
	for len(errLoc) > 0 && errLoc[0] == 0 {
		errLoc = errLoc[1:]
	}
	errs := len(errLoc) - 1
	if errs == 0 || errs*2 > nsym {
		return nil, errPacketUncorrectable
	}

	// Chien search: errLoc(x) has its roots at the inverses of the
	// error locators, so alpha^-i being a root names an error in the
	// coefficient of x^i.
	errRoots := make([]int, 0, errs)
	errPos := make([]int, 0, errs)
	for i := 0; i < n; i++ {
		if polyEval(errLoc, gfInverse(gfPow(gfGen, i))) == 0 {
			errRoots = append(errRoots, i)
			errPos = append(errPos, n-1-i)
		}
	}
	if len(errRoots) != errs {
		return nil, errPacketUncorrectable
	}

	// Error evaluator polynomial: Omega(x) = [S(x) * errLoc(x)] mod x^nsym.
	revSynd := make([]byte, nsym)
	for i := 0; i < nsym; i++ {
		revSynd[i] = synd[nsym-1-i]
	}
	errEval := polyMul(revSynd, errLoc)
	if len(errEval) > nsym {
		errEval = errEval[len(errEval)-nsym:]
	}

	corrected := append([]byte(nil), codeword...)
	for idx, i := range errRoots {
		xi := gfPow(gfGen, i)
		xiInv := gfInverse(xi)

		errLocPrime := byte(1)
		for j, rj := range errRoots {
			if j == idx {
				continue
			}
			xj := gfPow(gfGen, rj)
			errLocPrime = gfMul(errLocPrime, 1^gfMul(xiInv, xj))
		}
		if errLocPrime == 0 {
			return nil, errPacketUncorrectable
		}

		y := polyEval(errEval, xiInv)
		magnitude := gfDiv(y, errLocPrime)
		corrected[errPos[idx]] ^= magnitude
	}

	for i := 0; i < nsym; i++ {
		if polyEval(corrected, gfPow(gfGen, i)) != 0 {
			return nil, errPacketUncorrectable
		}
	}
	return corrected[:k], nil
}
