/**
 * @description
 * Quality classifier for discovered catalog candidates.
 * Separates genuine category products from the accessory/noise listings that
 * bestseller lists and keyword searches drag in (mounts, cables, dummy units).
 *
 * @notes
 * - Implemented as an ordered rule chain with early exit. The order is
 *   load-bearing: the high-value rule runs before the global keyword rule so
 *   genuinely expensive items bypass over-aggressive keyword matching, while
 *   category-specific exclusions still apply to them.
 * - Pure and side-effect free; rejects are tallied by callers, never logged
 *   as failures.
 */

package services

import (
	"regexp"
	"strings"
	"sync"
)

const (
	// Above this price a listing is presumed legitimate unless a category
	// exclusion or personal-accessory term says otherwise.
	highValueThreshold = 150.0
	// Below this price a listing is rejected unless its category is
	// explicitly cheap (memory cards etc.).
	absolutePriceFloor = 5.0
)

// Verdict is one rule's contribution to the decision.
type Verdict int

const (
	// VerdictNext defers to the following rule.
	VerdictNext Verdict = iota
	// VerdictAdmit accepts the candidate and stops the chain.
	VerdictAdmit
	// VerdictReject discards the candidate and stops the chain.
	VerdictReject
)

// Rule is one named step of the chain.
type Rule struct {
	Name  string
	Apply func(title string, price float64, category string) Verdict
}

// CategoryRule is the per-category refinement applied by the category rule
// step and (exclusions only) by the high-value step.
type CategoryRule struct {
	MinPrice        float64
	ExcludeKeywords []string
}

// strong accessory terms: reject regardless of price
var strongAccessoryTerms = []string{
	"mount",
	"bracket",
	"stand",
	"riser",
	"dummy",
	"wall holder",
	"vesa plate",
}

// personal-accessory terms checked on high-value items only
var personalAccessoryTerms = []string{
	"carrying case",
	"case cover",
	"protective cover",
	"dummy",
}

// global exclusion keywords, matched whole-word so compound product names
// that merely contain a banned substring survive
var globalExcludeKeywords = []string{
	"cable",
	"adapter",
	"extension",
	"sticker",
	"skin",
	"screen protector",
	"cleaning",
	"repair kit",
	"replacement",
	"remote control",
	"sleeve",
	"pouch",
	"splitter",
	"thermal pad",
}

// defaultCategoryRules is the registered refinement per storefront category.
// Categories without an entry are permissive at the category step.
var defaultCategoryRules = map[string]CategoryRule{
	"gpu": {
		MinPrice:        80,
		ExcludeKeywords: []string{"fan", "backplate", "water block", "waterblock", "support bar"},
	},
	"cpu": {
		MinPrice:        30,
		ExcludeKeywords: []string{"cooler", "fan", "thermal paste", "socket cover"},
	},
	"ram": {
		MinPrice:        10,
		ExcludeKeywords: []string{"heatsink", "heat spreader"},
	},
	"hard-drives": {
		MinPrice:        15,
		ExcludeKeywords: []string{"docking station", "enclosure", "caddy", "adapter"},
	},
	"memory-cards": {
		MinPrice:        0,
		ExcludeKeywords: []string{"reader"},
	},
	"monitors": {
		MinPrice:        60,
		ExcludeKeywords: []string{"monitor arm", "desk mount", "privacy filter"},
	},
}

// categories legitimately cheaper than the absolute floor
var floorExemptCategories = map[string]bool{
	"memory-cards": true,
}

// QualityClassifier evaluates candidates against the ordered rule chain.
type QualityClassifier struct {
	rules      []Rule
	categories map[string]CategoryRule
}

// NewQualityClassifier builds the default chain.
func NewQualityClassifier() *QualityClassifier {
	c := &QualityClassifier{categories: defaultCategoryRules}
	c.rules = []Rule{
		{Name: "strong-accessory", Apply: c.strongAccessoryRule},
		{Name: "high-value", Apply: c.highValueRule},
		{Name: "global-keywords", Apply: c.globalKeywordRule},
		{Name: "category", Apply: c.categoryRule},
		{Name: "price-floor", Apply: c.priceFloorRule},
	}
	return c
}

// IsQualityProduct reports whether the candidate is a legitimate product of
// its category.
func (c *QualityClassifier) IsQualityProduct(title string, price float64, category string) bool {
	admitted, _ := c.Evaluate(title, price, category)
	return admitted
}

// Evaluate runs the chain and also names the rule that decided, for the
// caller's reject tallies.
func (c *QualityClassifier) Evaluate(title string, price float64, category string) (bool, string) {
	title = strings.ToLower(title)
	for _, rule := range c.rules {
		switch rule.Apply(title, price, category) {
		case VerdictAdmit:
			return true, rule.Name
		case VerdictReject:
			return false, rule.Name
		}
	}
	return true, "default-admit"
}

// strongAccessoryRule rejects mounting hardware and dummy units outright,
// regardless of price.
func (c *QualityClassifier) strongAccessoryRule(title string, price float64, category string) Verdict {
	for _, term := range strongAccessoryTerms {
		if matchesWord(title, term) {
			return VerdictReject
		}
	}
	return VerdictNext
}

// highValueRule presumes expensive listings legitimate. Only the category's
// own exclusions and a narrow personal-accessory check can still reject them.
// Terminal both ways for prices above the threshold.
func (c *QualityClassifier) highValueRule(title string, price float64, category string) Verdict {
	if price <= highValueThreshold {
		return VerdictNext
	}
	if rule, ok := c.categories[category]; ok {
		for _, kw := range rule.ExcludeKeywords {
			if matchesWord(title, kw) {
				return VerdictReject
			}
		}
	}
	for _, term := range personalAccessoryTerms {
		if matchesWord(title, term) {
			return VerdictReject
		}
	}
	return VerdictAdmit
}

// globalKeywordRule applies the shared exclusion list with whole-word matching.
func (c *QualityClassifier) globalKeywordRule(title string, price float64, category string) Verdict {
	for _, kw := range globalExcludeKeywords {
		if matchesWord(title, kw) {
			return VerdictReject
		}
	}
	return VerdictNext
}

// categoryRule applies the registered per-category refinement, if any.
func (c *QualityClassifier) categoryRule(title string, price float64, category string) Verdict {
	rule, ok := c.categories[category]
	if !ok {
		return VerdictNext
	}
	for _, kw := range rule.ExcludeKeywords {
		if matchesWord(title, kw) {
			return VerdictReject
		}
	}
	if rule.MinPrice > 0 && price < rule.MinPrice {
		return VerdictReject
	}
	return VerdictNext
}

// priceFloorRule rejects suspiciously cheap listings unless the category is
// exempt.
func (c *QualityClassifier) priceFloorRule(title string, price float64, category string) Verdict {
	if price < absolutePriceFloor && !floorExemptCategories[category] {
		return VerdictReject
	}
	return VerdictNext
}

var (
	wordPatterns   = map[string]*regexp.Regexp{}
	wordPatternsMu sync.Mutex
)

// matchesWord reports whether keyword occurs in title on word boundaries.
// "cable" must not reject "cableless"; multi-word keywords match as phrases.
func matchesWord(title, keyword string) bool {
	wordPatternsMu.Lock()
	re, ok := wordPatterns[keyword]
	if !ok {
		re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
		wordPatterns[keyword] = re
	}
	wordPatternsMu.Unlock()
	return re.MatchString(title)
}
