package hydro

// Culvert shape, material, and inlet structure vocabularies. These are the
// already-crosswalked values; raw NAACC codes are mapped onto them during
// normalization.
const (
	ShapeRound      = "Round"
	ShapeElliptical = "Elliptical"
	ShapePipeArch   = "Pipe Arch"
	ShapeBox        = "Box"
	ShapeArch       = "Arch"

	MaterialConcrete    = "Concrete"
	MaterialStone       = "Stone"
	MaterialPlastic     = "Plastic"
	MaterialMetal       = "Metal"
	MaterialWood        = "Wood"
	MaterialCombination = "Combination"

	InletHeadwall         = "Headwall"
	InletWingwall         = "Wingwall"
	InletWingwallHeadwall = "Wingwall and Headwall"
	InletMiteredToSlope   = "Mitered to Slope"
	InletProjecting       = "Projecting"
)

// Coefficients holds the c and Y values for the FHWA capacity equation,
// looked up by (shape, material, inlet structure type) from publication
// HIF-12-026 Appendix A. Note carries the qualifier recorded when a
// combination only has filler values in the source table.
type Coefficients struct {
	C    float64
	Y    float64
	Note string
}

// coefEntry is one row of the flattened Appendix A lookup. A nil Inlets
// slice matches any known inlet type; rows with explicit inlets are listed
// before their wildcard fallback so the first match wins.
type coefEntry struct {
	shape     string
	materials []string
	inlets    []string
	coefs     Coefficients
}

const defaultCoefNote = "default c & Y values"

var fhwaCoefficientTable = []coefEntry{
	// Arch
	{ShapeArch, []string{MaterialConcrete, MaterialStone}, []string{InletHeadwall, InletProjecting}, Coefficients{C: 0.041, Y: 0.570}},
	{ShapeArch, []string{MaterialConcrete, MaterialStone}, []string{InletMiteredToSlope}, Coefficients{C: 0.040, Y: 0.48}},
	{ShapeArch, []string{MaterialConcrete, MaterialStone}, []string{InletWingwall, InletWingwallHeadwall}, Coefficients{C: 0.040, Y: 0.620}},
	{ShapeArch, []string{MaterialPlastic, MaterialMetal}, []string{InletMiteredToSlope}, Coefficients{C: 0.0540, Y: 0.5}},
	{ShapeArch, []string{MaterialPlastic, MaterialMetal}, []string{InletProjecting}, Coefficients{C: 0.065, Y: 0.12}},
	{ShapeArch, []string{MaterialPlastic, MaterialMetal}, []string{InletHeadwall, InletWingwall, InletWingwallHeadwall}, Coefficients{C: 0.0431, Y: 0.610}},
	{ShapeArch, []string{MaterialCombination}, nil, Coefficients{C: 0.045, Y: 0.5, Note: defaultCoefNote}},

	// Box
	{ShapeBox, []string{MaterialConcrete, MaterialStone}, nil, Coefficients{C: 0.0378, Y: 0.870}},
	{ShapeBox, []string{MaterialPlastic, MaterialMetal}, []string{InletHeadwall}, Coefficients{C: 0.0379, Y: 0.690}},
	{ShapeBox, []string{MaterialPlastic, MaterialMetal}, []string{InletWingwall}, Coefficients{C: 0.040, Y: 0.620, Note: defaultCoefNote}},
	{ShapeBox, []string{MaterialPlastic, MaterialMetal}, nil, Coefficients{C: 0.04, Y: 0.65, Note: defaultCoefNote}},
	{ShapeBox, []string{MaterialWood}, nil, Coefficients{C: 0.038, Y: 0.87}},
	{ShapeBox, []string{MaterialCombination}, nil, Coefficients{C: 0.038, Y: 0.7, Note: defaultCoefNote}},

	// Elliptical / pipe arch
	{ShapeElliptical, []string{MaterialConcrete, MaterialStone}, nil, Coefficients{C: 0.048, Y: 0.80}},
	{ShapeElliptical, []string{MaterialPlastic, MaterialMetal}, []string{InletProjecting}, Coefficients{C: 0.060, Y: 0.75}},
	{ShapeElliptical, []string{MaterialPlastic, MaterialMetal}, nil, Coefficients{C: 0.048, Y: 0.80}},
	{ShapeElliptical, []string{MaterialCombination}, nil, Coefficients{C: 0.05, Y: 0.8, Note: defaultCoefNote}},

	// Round
	{ShapeRound, []string{MaterialConcrete, MaterialStone}, []string{InletProjecting}, Coefficients{C: 0.032, Y: 0.69}},
	{ShapeRound, []string{MaterialConcrete, MaterialStone}, nil, Coefficients{C: 0.029, Y: 0.74}},
	{ShapeRound, []string{MaterialPlastic, MaterialMetal}, []string{InletProjecting}, Coefficients{C: 0.055, Y: 0.54}},
	{ShapeRound, []string{MaterialPlastic, MaterialMetal}, []string{InletMiteredToSlope}, Coefficients{C: 0.046, Y: 0.75}},
	{ShapeRound, []string{MaterialPlastic, MaterialMetal}, nil, Coefficients{C: 0.038, Y: 0.69}},
	{ShapeRound, []string{MaterialCombination}, nil, Coefficients{C: 0.04, Y: 0.65, Note: defaultCoefNote}},
}

// LookupCoefficients resolves the FHWA c and Y coefficients for a culvert.
// Pipe arches share the elliptical rows. Returns UnknownCoefficientKeyError
// when no table row covers the combination.
func LookupCoefficients(shape, material, inlet string) (Coefficients, error) {
	lookupShape := shape
	if lookupShape == ShapePipeArch {
		lookupShape = ShapeElliptical
	}
	for _, e := range fhwaCoefficientTable {
		if e.shape != lookupShape {
			continue
		}
		if !contains(e.materials, material) {
			continue
		}
		if e.inlets == nil || contains(e.inlets, inlet) {
			return e.coefs, nil
		}
	}
	return Coefficients{}, &UnknownCoefficientKeyError{Shape: shape, Material: material, Inlet: inlet}
}

// SlopeCoefficient returns the FHWA Ks term: -0.5 for all inlet
// configurations except mitered-to-slope, which flips it to +0.7. This is a
// property of the inlet configuration, not a tunable parameter.
func SlopeCoefficient(inlet string) float64 {
	if inlet == InletMiteredToSlope {
		return 0.7
	}
	return -0.5
}

// KnownShape reports whether a crosswalked shape value has coefficient
// coverage.
func KnownShape(shape string) bool {
	switch shape {
	case ShapeRound, ShapeElliptical, ShapePipeArch, ShapeBox, ShapeArch:
		return true
	}
	return false
}

// KnownMaterial reports whether a material value has coefficient coverage.
func KnownMaterial(material string) bool {
	switch material {
	case MaterialConcrete, MaterialStone, MaterialPlastic, MaterialMetal, MaterialWood, MaterialCombination:
		return true
	}
	return false
}

// KnownInletType reports whether a crosswalked inlet structure type has
// coefficient coverage.
func KnownInletType(inlet string) bool {
	switch inlet {
	case InletHeadwall, InletWingwall, InletWingwallHeadwall, InletMiteredToSlope, InletProjecting:
		return true
	}
	return false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
