package server_test

import (
	"testing"

	"github.com/Alfresco/SearchServices-sub009/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Role(t *testing.T) {
	tests := []struct {
		name   string
		role   string
		valid  bool
		tracks bool
	}{
		{"Standalone", server.RoleStandalone, true, true},
		{"Master", server.RoleMaster, true, true},
		{"Slave", server.RoleSlave, true, false},
		{"Invalid", "replica", false, false},
		{"Empty", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := server.Config{Role: tt.role}
			assert.Equal(t, tt.valid, c.IsValidRole())
			assert.Equal(t, tt.tracks, c.Tracks())
		})
	}
}
