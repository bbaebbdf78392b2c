// Package canon provides deterministic canonical byte encoding and
// domain-separated content addressing for pipeline records.
//
// Every content-addressed identity in the system (route ids, TIC ids,
// snapshot hashes, block hashes) is computed over a canonical encoding
// produced here. Two requirements drive the design:
//
//  1. Identical logical inputs must produce byte-identical encodings on
//     every run and every platform. Reals are rendered with a fixed decimal
//     width, strings are NFC normalized, and field order is fixed by the
//     caller.
//  2. Different record kinds must never collide. Each digest is prefixed
//     with a versioned domain string separated by a null byte.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRoute     = "coagula/route/v1"
	DomainSnapshot  = "coagula/snapshot/v1"
	DomainTIC       = "coagula/tic/v1"
	DomainCrystal   = "coagula/crystal/v1"
	DomainProof     = "coagula/proof/v1"
	DomainBlock     = "coagula/block/v1"
	DomainGateEvent = "coagula/gate-event/v1"
)

// RealPrecision is the number of decimal digits used when rendering reals
// into a canonical encoding. Wide enough that distinct float64 pipeline
// values stay distinct, fixed so the rendering never varies.
const RealPrecision = 12

// ShortIDLength is the hex length of truncated identifiers (route ids).
const ShortIDLength = 16

// HashWithDomain computes SHA-256 over domain || 0x00 || data and returns
// the lowercase hex digest. The null separator prevents domain/data
// boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SumWithDomain is HashWithDomain returning the raw digest bytes.
// Used where the digest feeds further arithmetic (route index derivation).
func SumWithDomain(domain string, data []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ShortID computes HashWithDomain truncated to ShortIDLength hex characters.
func ShortID(domain string, data []byte) string {
	return HashWithDomain(domain, data)[:ShortIDLength]
}

// Real renders a real with the fixed canonical precision.
func Real(x float64) string {
	return strconv.FormatFloat(x, 'f', RealPrecision, 64)
}

// fieldSep separates encoded fields; recordSep separates elements inside a
// list field. Both are control characters that never occur in rendered
// values, so the encoding is unambiguous without escaping.
const (
	fieldSep  = "\x1f"
	recordSep = ","
)

// Encoder accumulates labeled fields into a canonical byte encoding.
// Field order is significant and fixed by the caller; the same sequence of
// calls always yields the same bytes.
type Encoder struct {
	fields []string
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// String appends a labeled NFC-normalized string field.
func (e *Encoder) String(label, s string) *Encoder {
	e.fields = append(e.fields, label+"="+norm.NFC.String(s))
	return e
}

// RealField appends a labeled real rendered at canonical precision.
func (e *Encoder) RealField(label string, x float64) *Encoder {
	e.fields = append(e.fields, label+"="+Real(x))
	return e
}

// Reals appends a labeled list of reals.
func (e *Encoder) Reals(label string, xs []float64) *Encoder {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = Real(x)
	}
	e.fields = append(e.fields, label+"=["+strings.Join(parts, recordSep)+"]")
	return e
}

// Int appends a labeled integer field.
func (e *Encoder) Int(label string, n int64) *Encoder {
	e.fields = append(e.fields, label+"="+strconv.FormatInt(n, 10))
	return e
}

// Ints appends a labeled list of integers.
func (e *Encoder) Ints(label string, ns []int) *Encoder {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	e.fields = append(e.fields, label+"=["+strings.Join(parts, recordSep)+"]")
	return e
}

// Bytes returns the canonical encoding of the accumulated fields.
func (e *Encoder) Bytes() []byte {
	return []byte(strings.Join(e.fields, fieldSep))
}
