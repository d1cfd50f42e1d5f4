package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase passthrough", "tunables", "tunables"},
		{"digits kept", "svc2", "svc2"},
		{"uppercase folded", "EidosTunables", "eidostunables"},
		{"dash replaced", "eidos-tunables", "eidos_tunables"},
		{"dot and space replaced", "eidos.tunables v1", "eidos_tunables_v1"},
		{"non ascii bytes replaced", "é", "__"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.in))
		})
	}
}

func TestMigrationsTable(t *testing.T) {
	assert.Equal(t, "schema_migrations_eidos_tunables", migrationsTable("eidos-tunables"))
	assert.Equal(t, "schema_migrations_default", migrationsTable(""))
}

func TestNewMigrator_NilLogger(t *testing.T) {
	m := NewMigrator(nil, "eidos-tunables", nil)
	assert.NotNil(t, m.logger)
	assert.Equal(t, "eidos-tunables", m.serviceName)
}
