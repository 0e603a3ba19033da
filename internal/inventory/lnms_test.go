package inventory_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewPiroli/NOS-MCT/internal/inventory"
	"github.com/AndrewPiroli/NOS-MCT/pkg/lg"
)

func lnmsServer(t *testing.T, status string, devices []map[string]any) inventory.DiscoveryConfig {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/devices", r.URL.Path)
		assert.Equal(t, "sekrit-token", r.Header.Get("X-Auth-Token"))
		json.NewEncoder(w).Encode(map[string]any{"status": status, "devices": devices})
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return inventory.DiscoveryConfig{
		Host:     u.Hostname(),
		Port:     port,
		Protocol: "http",
		APIKey:   "sekrit-token",
		Username: "netops",
		Password: "hunter2",
	}
}

func TestLNMSResolve(t *testing.T) {
	cfg := lnmsServer(t, "ok", []map[string]any{
		{"hostname": "sw1.example.net", "ip": "192.0.2.1", "os": "ios", "sysName": "sw1"},
		{"hostname": "sw2.example.net", "ip": "", "os": "iosxe", "sysName": "sw2"},
		{"hostname": "hypervisor.example.net", "ip": "192.0.2.3", "os": "esxi"},
		{"hostname": "mystery.example.net", "ip": "192.0.2.4", "os": "junos"},
		{"hostname": "sw1-dup", "ip": "192.0.2.1", "os": "ios"},
	})

	lnms, err := inventory.NewLNMS(cfg, inventory.DefaultFilterSet(), lg.Discard)
	require.NoError(t, err)

	records, err := lnms.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	// ip preferred, hostname as fallback
	assert.Equal(t, "192.0.2.1", records[0].Host)
	assert.Equal(t, "sw2.example.net", records[1].Host)

	// credentials come from local config, never from the API
	for _, rec := range records {
		assert.Equal(t, "netops", rec.Username)
		assert.Equal(t, "hunter2", rec.Password)
		assert.Equal(t, "hunter2", rec.Secret) // defaults to password
		assert.Equal(t, "cisco_ios", rec.DeviceType)
	}
}

func TestLNMSResolveUserFilters(t *testing.T) {
	cfg := lnmsServer(t, "ok", []map[string]any{
		{"hostname": "core1", "ip": "192.0.2.10", "os": "ios", "location": "dc-east"},
		{"hostname": "core2", "ip": "192.0.2.11", "os": "ios", "location": "dc-west"},
	})
	cfg.Filters = []inventory.Predicate{
		{Field: "location", Qualifier: inventory.QualifierEQ, Values: []string{"dc-east"}},
	}

	lnms, err := inventory.NewLNMS(cfg, inventory.DefaultFilterSet(), lg.Discard)
	require.NoError(t, err)

	records, err := lnms.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "192.0.2.10", records[0].Host)
}

func TestLNMSResolveBadStatus(t *testing.T) {
	cfg := lnmsServer(t, "error", nil)
	lnms, err := inventory.NewLNMS(cfg, inventory.DefaultFilterSet(), lg.Discard)
	require.NoError(t, err)

	_, err = lnms.Resolve(context.Background())
	assert.ErrorIs(t, err, inventory.ErrAPIStatus)
}

func TestLNMSResolveNothingUsable(t *testing.T) {
	cfg := lnmsServer(t, "ok", []map[string]any{
		{"hostname": "esx1", "ip": "192.0.2.20", "os": "esxi"},
	})
	lnms, err := inventory.NewLNMS(cfg, inventory.DefaultFilterSet(), lg.Discard)
	require.NoError(t, err)

	_, err = lnms.Resolve(context.Background())
	assert.ErrorIs(t, err, inventory.ErrEmptyInventory)
}

func TestDiscoveryConfigNormalize(t *testing.T) {
	cfg := inventory.DiscoveryConfig{Host: "lnms.example.net", APIKey: "k", Username: "u", Password: "p"}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, "https", cfg.Protocol)
	assert.Equal(t, 443, cfg.Port)
	require.NotNil(t, cfg.TLSVerify)
	assert.True(t, *cfg.TLSVerify)
	assert.Equal(t, "p", cfg.Secret)

	missing := inventory.DiscoveryConfig{Host: "lnms.example.net"}
	assert.Error(t, missing.Normalize())
}
