package db

import (
	"testing"

	"github.com/shinyyama/loops-backend/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	base := config.DBConfig{DBUser: "loops", DBPassword: "pw", DBName: "market", DBPort: "3306"}
	tests := []struct {
		name     string
		host     string
		instance string
		wantAddr string
	}{
		{"cloud sql instance wins", "db.internal", "proj:region:inst", "unix(/cloudsql/proj:region:inst)"},
		{"plain host", "db.internal", "", "tcp(db.internal:3306)"},
		{"wrapped tcp", "tcp(10.0.0.2:3307)", "", "tcp(10.0.0.2:3307)"},
		{"wrapped unix", "unix(/tmp/mysql.sock)", "", "unix(/tmp/mysql.sock)"},
		{"socket path", "/cloudsql/x", "", "unix(/cloudsql/x)"},
		{"empty host", "", "", "tcp(127.0.0.1:3306)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.DBHost = tt.host
			cfg.InstanceConnectionName = tt.instance
			want := "loops:pw@" + tt.wantAddr + "/market?charset=utf8mb4&parseTime=True&loc=UTC"
			assert.Equal(t, want, BuildDSN(&cfg))
		})
	}
}
