package classify

import "github.com/polimaq/rankcore/internal/domain"

// baseCompat is the fixed compatibility between a query category (row) and
// a document category (column). Unknown queries stay permissive toward core
// equipment so vague searches are not starved of machines.
var baseCompat = map[domain.Category]map[domain.Category]float64{
	domain.CategoryCore: {
		domain.CategoryCore:       1.0,
		domain.CategorySupport:    0.85,
		domain.CategoryPeripheral: 0.2,
		domain.CategoryUnknown:    0.5,
	},
	domain.CategorySupport: {
		domain.CategoryCore:       0.4,
		domain.CategorySupport:    1.0,
		domain.CategoryPeripheral: 0.5,
		domain.CategoryUnknown:    0.5,
	},
	domain.CategoryPeripheral: {
		domain.CategoryCore:       0.2,
		domain.CategorySupport:    0.5,
		domain.CategoryPeripheral: 1.0,
		domain.CategoryUnknown:    0.5,
	},
	domain.CategoryUnknown: {
		domain.CategoryCore:       0.8,
		domain.CategorySupport:    0.7,
		domain.CategoryPeripheral: 0.6,
		domain.CategoryUnknown:    0.7,
	},
}

// Compatibility scores how well a document's category fits the query's.
// The base matrix value is modulated by both confidences so low-confidence
// classifications never fully override it:
//
//	final = base × (0.5 + 0.5 × qConf × dConf)
//
// The result is clamped to [0,1].
func Compatibility(query, doc domain.Classification) float64 {
	base := baseCompat[query.Category][doc.Category]
	final := base * (0.5 + 0.5*query.Confidence*doc.Confidence)
	if final < 0 {
		return 0
	}
	if final > 1 {
		return 1
	}
	return final
}
