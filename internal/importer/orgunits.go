package importer

import "strings"

// orgUnitNames maps the numeric prefix of the export's company column to
// the unit name staff actually use. The ERP writes the full legal entity
// string ("001 - COMERCIO DE CALCADOS LTDA"); only the 3-character prefix
// is stable across exports and rebrandings.
var orgUnitNames = map[string]string{
	"001": "Matriz",
	"002": "Loja Centro",
	"003": "Loja Avenida",
	"004": "Loja Shopping Norte",
	"005": "Loja Shopping Sul",
	"006": "Quiosque Terminal",
	"007": "Centro de Distribuição",
	"008": "E-commerce",
}

func orgUnitKey(raw string) string {
	key := strings.TrimSpace(raw)
	if len(key) > 3 {
		key = strings.TrimSpace(key[:3])
	}
	return key
}

// CanonicalOrgUnit resolves a raw company cell to a display unit name.
// Unknown codes come back as a fallback label that keeps the code visible,
// with known=false so callers can flag the gap instead of losing it.
func CanonicalOrgUnit(raw string) (label string, known bool) {
	key := orgUnitKey(raw)
	if key == "" {
		return "", false
	}
	if name, ok := orgUnitNames[key]; ok {
		return name, true
	}
	return "Unidade " + key, false
}
