package sdr

import (
	"fmt"
	"math"
)

// Linearization is the post-scaling function applied to a converted
// reading.
type Linearization uint8

const (
	LinearizationLinear   Linearization = 0
	LinearizationLn       Linearization = 1
	LinearizationLog10    Linearization = 2
	LinearizationLog2     Linearization = 3
	LinearizationE        Linearization = 4
	LinearizationExp10    Linearization = 5
	LinearizationExp2     Linearization = 6
	LinearizationInverse  Linearization = 7
	LinearizationSquare   Linearization = 8
	LinearizationCube     Linearization = 9
	LinearizationSqrt     Linearization = 10
	LinearizationCubeRoot Linearization = 11
	// LinearizationNonLinear marks sensors whose curve must be obtained
	// via Get Sensor Reading Factors.
	LinearizationNonLinear Linearization = 0x70
)

var linearFuncs = map[Linearization]func(float64) float64{
	LinearizationLinear:   func(x float64) float64 { return x },
	LinearizationLn:       math.Log,
	LinearizationLog10:    math.Log10,
	LinearizationLog2:     math.Log2,
	LinearizationE:        math.Exp,
	LinearizationExp10:    func(x float64) float64 { return math.Pow(10, x) },
	LinearizationExp2:     func(x float64) float64 { return math.Exp2(x) },
	LinearizationInverse:  func(x float64) float64 { return 1 / x },
	LinearizationSquare:   func(x float64) float64 { return x * x },
	LinearizationCube:     func(x float64) float64 { return x * x * x },
	LinearizationSqrt:     math.Sqrt,
	LinearizationCubeRoot: math.Cbrt,
}

// Apply runs the linearization function. Unknown codes are an error, not a
// silent identity.
func (l Linearization) Apply(x float64) (float64, error) {
	if f, ok := linearFuncs[l]; ok {
		return f(x), nil
	}
	return 0, fmt.Errorf("unsupported linearization code 0x%02X", uint8(l))
}

func (l Linearization) String() string {
	switch l {
	case LinearizationLinear:
		return "linear"
	case LinearizationLn:
		return "ln"
	case LinearizationLog10:
		return "log10"
	case LinearizationLog2:
		return "log2"
	case LinearizationE:
		return "e^x"
	case LinearizationExp10:
		return "10^x"
	case LinearizationExp2:
		return "2^x"
	case LinearizationInverse:
		return "1/x"
	case LinearizationSquare:
		return "x^2"
	case LinearizationCube:
		return "x^3"
	case LinearizationSqrt:
		return "sqrt(x)"
	case LinearizationCubeRoot:
		return "cbrt(x)"
	case LinearizationNonLinear:
		return "non-linear"
	}
	return fmt.Sprintf("linearization(0x%02X)", uint8(l))
}
