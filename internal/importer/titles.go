package importer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// levelSuffix matches the seniority marker the ERP appends to job titles:
// an optional "NIVEL" word plus a roman numeral. Plain "V" is deliberately
// not in the alternation; the chain never used level five and a lone V at
// the end of a title is more likely an initial.
var levelSuffix = regexp.MustCompile(`(?i)\s+(?:N[IÍ]VEL\s+)?(?:VIII|VII|VI|IX|IV|III|II|I)$`)

// titleGroups maps raw ERP titles to their canonical display form. First
// match wins, so more specific prefixes come before their shorter stems.
var titleGroups = []struct {
	prefix    string
	canonical string
}{
	{"OPERADOR DE CAIXA", "Operador de Caixa"},
	{"OPERADOR DE LOJA", "Operador de Loja"},
	{"ASSISTENTE ADMINISTRATIVO", "Assistente Administrativo"},
	{"AUXILIAR ADMINISTRATIVO", "Auxiliar Administrativo"},
	{"AUXILIAR DE DEPOSITO", "Auxiliar de Depósito"},
	{"AUXILIAR DE LIMPEZA", "Auxiliar de Limpeza"},
	{"FISCAL DE PREVENCAO", "Fiscal de Prevenção"},
	{"GERENTE GERAL", "Gerente Geral"},
	{"SUBGERENTE", "Subgerente"},
	{"GERENTE", "Gerente"},
	{"SUPERVISOR", "Supervisor"},
	{"VENDEDOR", "Vendedor"},
	{"CAIXA", "Operador de Caixa"},
	{"ESTOQUISTA", "Estoquista"},
	{"REPOSITOR", "Repositor"},
	{"MOTORISTA", "Motorista"},
}

// CanonicalTitle folds the ERP's job-title variants ("VENDEDOR II",
// "VENDEDOR NIVEL III", "VENDEDOR INTERNO") into one canonical form per
// role so that filtering and reports group correctly. Titles outside the
// known groups are title-cased as-is.
func CanonicalTitle(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = levelSuffix.ReplaceAllString(s, "")

	upper := strings.ToUpper(s)
	for _, g := range titleGroups {
		if upper == g.prefix || strings.HasPrefix(upper, g.prefix+" ") {
			return g.canonical
		}
	}
	return cases.Title(language.BrazilianPortuguese).String(strings.ToLower(s))
}
