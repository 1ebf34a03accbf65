/**
 * @description
 * Capability attribute extraction from product titles.
 * Derives capacity, technology, form factor and energy label via pattern
 * matching so the storefront can filter/compare without provider-specific
 * attribute feeds.
 */

package services

import (
	"regexp"
	"strconv"
	"strings"
)

// ProductAttributes are the derived capability attributes stored on a Product.
type ProductAttributes struct {
	Capacity     float64
	CapacityUnit string
	Technology   string
	FormFactor   string
	EnergyLabel  string
}

var capacityPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(tb|gb|mb)\b`)

// ordered by specificity: the first match wins
var technologyTokens = []string{
	"NVMe",
	"SATA III",
	"SATA",
	"SSD",
	"HDD",
	"DDR5",
	"DDR4",
	"GDDR6X",
	"GDDR6",
	"OLED",
	"QLED",
	"IPS",
	"UHS-II",
	"UHS-I",
	"microSDXC",
	"microSDHC",
	"SDXC",
	"SDHC",
}

var formFactorTokens = []string{
	`M.2 2280`,
	`M.2`,
	`2.5"`,
	`3.5"`,
	"ATX",
	"Micro-ATX",
	"Mini-ITX",
	"SO-DIMM",
	"DIMM",
	"Low Profile",
}

var energyLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\benergy\s+(?:class|label|rating)\s*:?\s*([a-g])\b`),
	regexp.MustCompile(`(?i)\b(?:eek|effizienzklasse)\s*:?\s*([a-g])\b`),
	// legacy EU labels like "A++"
	regexp.MustCompile(`\b([A-G])(\+{1,3})`),
}

// ExtractAttributes derives all capability attributes from a title.
func ExtractAttributes(title string) ProductAttributes {
	capacity, unit := ExtractCapacity(title)
	return ProductAttributes{
		Capacity:     capacity,
		CapacityUnit: unit,
		Technology:   ExtractTechnology(title),
		FormFactor:   ExtractFormFactor(title),
		EnergyLabel:  ExtractEnergyLabel(title),
	}
}

// ExtractCapacity returns the first capacity+unit pair found in the title.
// Returns (0, "") when none is present.
func ExtractCapacity(title string) (float64, string) {
	m := capacityPattern.FindStringSubmatch(title)
	if m == nil {
		return 0, ""
	}
	raw := strings.ReplaceAll(m[1], ",", ".")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, ""
	}
	return value, strings.ToUpper(m[2])
}

// ExtractTechnology returns the most specific technology token in the title.
func ExtractTechnology(title string) string {
	for _, token := range technologyTokens {
		if matchesWord(title, token) {
			return token
		}
	}
	return ""
}

// ExtractFormFactor returns the first known form factor found in the title.
func ExtractFormFactor(title string) string {
	lower := strings.ToLower(title)
	for _, token := range formFactorTokens {
		if strings.Contains(lower, strings.ToLower(token)) {
			return token
		}
	}
	return ""
}

// ExtractEnergyLabel returns the EU energy label class if the title names one.
func ExtractEnergyLabel(title string) string {
	for _, re := range energyLabelPatterns {
		if m := re.FindStringSubmatch(title); m != nil {
			label := strings.ToUpper(m[1])
			if len(m) > 2 {
				label += m[2]
			}
			return label
		}
	}
	return ""
}
