package speaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantName string
		wantRole string
	}{
		{
			name:     "role then name",
			raw:      "SECRETARIA DE TURISMO, JOSEFINA RODRÍGUEZ ZAMORA",
			wantName: "Josefina Rodríguez Zamora",
			wantRole: "Secretaria De Turismo",
		},
		{
			name:     "role without comma",
			raw:      "PRESIDENTA CLAUDIA SHEINBAUM PARDO",
			wantName: "Claudia Sheinbaum Pardo",
			wantRole: "Presidenta",
		},
		{
			name:     "role with accented country",
			raw:      "PRESIDENTA DE MÉXICO, CLAUDIA SHEINBAUM PARDO",
			wantName: "Claudia Sheinbaum Pardo",
			wantRole: "Presidenta De México",
		},
		{
			name:     "bare role",
			raw:      "MODERADOR:",
			wantName: "",
			wantRole: "Moderador",
		},
		{
			name:     "many commas",
			raw:      "SUBSECRETARIO DE PREVENCIÓN, COORDINADOR, HUGO LÓPEZ-GATELL RAMÍREZ",
			wantName: "Hugo López-gatell Ramírez",
			wantRole: "Subsecretario De Prevención, Coordinador",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			assert.Equal(t, tt.raw, got.Raw)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantRole, got.Role)
		})
	}
}

func TestParse_NameThenRoleKeepsAcronyms(t *testing.T) {
	raw := "PABLO GÓMEZ ÁLVAREZ, TITULAR DE LA UNIDAD DE INTELIGENCIA FINANCIERA (UIF) DE LA SECRETARÍA DE HACIENDA Y CRÉDITO PÚBLICO (SHCP):"
	got := Parse(raw)

	assert.Equal(t, raw, got.Raw)
	assert.Equal(t, "Pablo Gómez Álvarez", got.Name)
	assert.Contains(t, got.Role, "(UIF)")
	assert.Contains(t, got.Role, "(SHCP)")
	assert.NotContains(t, got.Role, "Uif")
	assert.Contains(t, got.Role, "Crédito Público")
}

func TestParse_LongRoleBeforeName(t *testing.T) {
	got := Parse("COORDINADORA DE LOS TRABAJOS DEL GOBIERNO FEDERAL PARA EL MUNDIAL 2026, GABRIELA CUEVAS BARRON")
	assert.Equal(t, "Gabriela Cuevas Barron", got.Name)
	assert.True(t, len(got.Role) > 0)
	assert.Regexp(t, "^Coordinadora De Los Trabajos", got.Role)
}

func TestParse_Empty(t *testing.T) {
	assert.Equal(t, Speaker{}, Parse(""))
	assert.Equal(t, Speaker{}, Parse("   "))
	assert.Equal(t, Speaker{Raw: ":"}, Parse(":"))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"CLAUDIA SHEINBAUM PARDO", "Claudia Sheinbaum Pardo"},
		{"  josefina   rodríguez zamora:: ", "Josefina Rodríguez Zamora"},
		{"ÁLVARO", "Álvaro"},
		{"", ""},
		{":", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}
