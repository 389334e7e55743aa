package importer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalTitleFoldsLevelVariants(t *testing.T) {
	cases := map[string]string{
		"VENDEDOR":            "Vendedor",
		"VENDEDOR II":         "Vendedor",
		"VENDEDOR INTERNO II": "Vendedor",
		"VENDEDOR NIVEL III":  "Vendedor",
		"VENDEDOR NÍVEL IV":   "Vendedor",
		"OPERADOR DE CAIXA I": "Operador de Caixa",
		"CAIXA":               "Operador de Caixa",
		"GERENTE GERAL":       "Gerente Geral",
		"GERENTE DE LOJA":     "Gerente",
		"SUBGERENTE II":       "Subgerente",
		"MOTORISTA":           "Motorista",
	}
	for raw, want := range cases {
		require.Equal(t, want, CanonicalTitle(raw), "input %q", raw)
	}
}

func TestCanonicalTitleFallsBackToTitleCase(t *testing.T) {
	require.Equal(t, "Nutricionista", CanonicalTitle("NUTRICIONISTA"))
	require.Equal(t, "Analista Fiscal", CanonicalTitle("ANALISTA FISCAL"))
	require.Equal(t, "", CanonicalTitle("   "))
}

func TestCanonicalOrgUnitKnownCodes(t *testing.T) {
	label, known := CanonicalOrgUnit("001 - LEGACY NAME COMERCIO DE CALCADOS LTDA")
	require.True(t, known)
	require.Equal(t, "Matriz", label)

	// The remainder of the cell is irrelevant; only the prefix decides.
	label, known = CanonicalOrgUnit("001 - RENAMED ENTITY SA")
	require.True(t, known)
	require.Equal(t, "Matriz", label)

	label, known = CanonicalOrgUnit("007 - CD IMPORTACAO LTDA")
	require.True(t, known)
	require.Equal(t, "Centro de Distribuição", label)
}

func TestCanonicalOrgUnitUnknownCode(t *testing.T) {
	label, known := CanonicalOrgUnit("999 - FILIAL NOVA LTDA")
	require.False(t, known)
	require.Equal(t, "Unidade 999", label)

	label, known = CanonicalOrgUnit("")
	require.False(t, known)
	require.Equal(t, "", label)
}
