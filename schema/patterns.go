package schema

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	skuPattern         = regexp.MustCompile(`^SKU\d{4,}$`)
	rawMaterialPattern = regexp.MustCompile(`^RM\d{4,}$`)
	batchPattern       = regexp.MustCompile(`^BATCH\d{4,}$`)
)

// measureUnits are the units of measure accepted for materials and usage
// quantities.
var measureUnits = []string{
	"kg", "g", "tonne", "litre", "ml", "metre", "mm", "piece", "roll", "sheet",
}

var measureUnitSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(measureUnits))
	for _, u := range measureUnits {
		set[u] = struct{}{}
	}
	return set
}()

func validateSkuID(fl validator.FieldLevel) bool {
	return skuPattern.MatchString(fl.Field().String())
}

func validateRawMaterialID(fl validator.FieldLevel) bool {
	return rawMaterialPattern.MatchString(fl.Field().String())
}

func validateBatchNumber(fl validator.FieldLevel) bool {
	return batchPattern.MatchString(fl.Field().String())
}

func validateMeasureUnit(fl validator.FieldLevel) bool {
	_, ok := measureUnitSet[fl.Field().String()]
	return ok
}
