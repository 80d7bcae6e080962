package certify

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-refmap/pkg/tpn"
)

type numericKind int

const (
	numericInteger numericKind = iota
	numericReal
	numericDouble
)

// Comparison epsilons for floating point enumerations. Single precision
// template values tolerate more round trip drift than double precision.
const (
	realEpsilon   = 1e-7
	doubleEpsilon = 1e-14
)

// numericValidator checks integer and floating point values against
// either a lo:hi range or an enumeration of permitted numbers.
type numericValidator struct {
	info       tpn.Info
	kind       numericKind
	isRange    bool
	low, high  float64
	allowed    []float64
	disallowed []float64
}

func newNumeric(info tpn.Info, kind numericKind) (*numericValidator, error) {
	v := &numericValidator{info: info, kind: kind}
	if info.IsRange() {
		v.isRange = true
		bounds := strings.SplitN(info.Values[0], ":", 2)
		var err error
		if v.low, err = v.parse(bounds[0]); err != nil {
			return nil, fmt.Errorf("certify: bad range low bound for %q: %w", info.Name, err)
		}
		if v.high, err = v.parse(bounds[1]); err != nil {
			return nil, fmt.Errorf("certify: bad range high bound for %q: %w", info.Name, err)
		}
		return v, nil
	}
	allowed, disallowed := splitConstraint(info.Values)
	for _, raw := range allowed {
		number, err := v.parse(raw)
		if err != nil {
			return nil, fmt.Errorf("certify: bad value %q in row %q: %w", raw, info.Name, err)
		}
		v.allowed = append(v.allowed, number)
	}
	for _, raw := range disallowed {
		number, err := v.parse(raw)
		if err != nil {
			return nil, fmt.Errorf("certify: bad value %q in row %q: %w", raw, info.Name, err)
		}
		v.disallowed = append(v.disallowed, number)
	}
	return v, nil
}

func (v *numericValidator) Name() string   { return v.info.Name }
func (v *numericValidator) Info() tpn.Info { return v.info }

func (v *numericValidator) parse(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if v.kind == numericInteger {
		number, err := strconv.ParseInt(raw, 10, 64)
		return float64(number), err
	}
	return strconv.ParseFloat(raw, 64)
}

func (v *numericValidator) equal(a, b float64) bool {
	switch v.kind {
	case numericReal:
		return math.Abs(a-b) <= realEpsilon
	case numericDouble:
		return math.Abs(a-b) <= doubleEpsilon
	}
	return a == b
}

func (v *numericValidator) CheckValue(value string) error {
	number, err := v.parse(value)
	if err != nil {
		return fmt.Errorf("certify: %s value %q is not a valid number: %w", v.info.Name, value, err)
	}
	if v.isRange {
		if number < v.low || number > v.high {
			return fmt.Errorf("certify: %s value %v is outside range %v:%v", v.info.Name, number, v.low, v.high)
		}
		return nil
	}
	for _, bad := range v.disallowed {
		if v.equal(number, bad) {
			return fmt.Errorf("certify: %s value %v is disallowed", v.info.Name, number)
		}
	}
	if len(v.allowed) == 0 {
		return nil
	}
	for _, ok := range v.allowed {
		if v.equal(number, ok) {
			return nil
		}
	}
	return fmt.Errorf("certify: %s value %v is not one of %v", v.info.Name, number, v.allowed)
}
