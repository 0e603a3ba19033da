package inventory

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AndrewPiroli/NOS-MCT/pkg/lg"
)

const apiBasePath = "/api/v0/"

var (
	ErrAPIStatus = errors.New("librenms: API returned a non-ok status")
)

// DiscoveryConfig holds the LibreNMS connection parameters plus the device
// login credentials, which come from local configuration, never from the API.
type DiscoveryConfig struct {
	Host      string      `yaml:"host" json:"host" validate:"required"`
	APIKey    string      `yaml:"api_key" json:"api_key" validate:"required"`
	Protocol  string      `yaml:"protocol" json:"protocol" validate:"omitempty,oneof=http https"`
	Port      int         `yaml:"port" json:"port" validate:"gte=0,lte=65535"`
	TLSVerify *bool       `yaml:"tls_verify" json:"tls_verify"`
	Username  string      `yaml:"username" json:"username" validate:"required"`
	Password  string      `yaml:"password" json:"password" validate:"required"`
	Secret    string      `yaml:"secret" json:"secret"`
	Filters   []Predicate `yaml:"filters" json:"filters" validate:"dive"`
}

// Normalize validates cfg and fills in the protocol-dependent defaults.
func (c *DiscoveryConfig) Normalize() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("librenms config: %w", err)
	}
	if c.Protocol == "" {
		c.Protocol = "https"
	}
	if c.Port == 0 {
		if c.Protocol == "http" {
			c.Port = 80
		} else {
			c.Port = 443
		}
	}
	if c.TLSVerify == nil {
		v := c.Protocol == "https"
		c.TLSVerify = &v
	}
	if c.Secret == "" {
		c.Secret = c.Password
	}
	return nil
}

// osToProfile maps a LibreNMS os tag onto a transport profile identifier.
// Devices with an unmapped os are skipped, nothing useful can drive them.
var osToProfile = map[string]string{
	"ios":   "cisco_ios",
	"iosxe": "cisco_ios",
}

type deviceListResponse struct {
	Status  string      `json:"status"`
	Devices []Candidate `json:"devices"`
}

// LNMS queries a LibreNMS instance for the device inventory.
type LNMS struct {
	cfg     DiscoveryConfig
	client  *http.Client
	filters FilterSet
	log     lg.Logger
}

// NewLNMS builds a discovery resolver. The default exclusion filter runs
// before the user filters from cfg; pass a custom defaults set to override.
func NewLNMS(cfg DiscoveryConfig, defaults FilterSet, logger lg.Logger) (*LNMS, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	filters := append(FilterSet{}, defaults...)
	filters = append(filters, cfg.Filters...)
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !*cfg.TLSVerify,
			},
		},
	}
	return &LNMS{cfg: cfg, client: client, filters: filters, log: logger}, nil
}

func (l *LNMS) endpoint(path string) string {
	return fmt.Sprintf("%s://%s:%d%s%s", l.cfg.Protocol, l.cfg.Host, l.cfg.Port, apiBasePath, path)
}

func (l *LNMS) fetchDevices(ctx context.Context) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint("devices"), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Auth-Token", l.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("librenms query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("librenms query: unexpected status code %d", resp.StatusCode)
	}
	var decoded deviceListResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("librenms query: decode: %w", err)
	}
	if decoded.Status != "ok" {
		return nil, ErrAPIStatus
	}
	return decoded.Devices, nil
}

// connAddr picks the first usable address attribute of a candidate.
func connAddr(c Candidate) string {
	for _, key := range []string{"ip", "hostname", "sysName"} {
		if v, ok := c[key]; ok {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// Resolve fetches the candidate list, applies the filter set and maps the
// survivors onto device records carrying the locally configured credentials.
func (l *LNMS) Resolve(ctx context.Context) ([]Record, error) {
	candidates, err := l.fetchDevices(ctx)
	if err != nil {
		return nil, err
	}
	l.log.Debug("librenms returned candidates", lg.Int("count", len(candidates)))

	var records []Record
	for _, cand := range candidates {
		ok, err := l.filters.Match(cand)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		addr := connAddr(cand)
		if addr == "" {
			l.log.Warn("discovered device has no usable address, skipping")
			continue
		}
		profile, known := osToProfile[fmt.Sprint(cand["os"])]
		if !known {
			l.log.Debug("no transport profile for os, skipping",
				lg.String("host", addr), lg.Any("os", cand["os"]))
			continue
		}
		records = append(records, Record{
			Host:       addr,
			Username:   l.cfg.Username,
			Password:   l.cfg.Password,
			Secret:     l.cfg.Secret,
			DeviceType: profile,
		})
	}
	records = Dedupe(records)
	if len(records) == 0 {
		return nil, ErrEmptyInventory
	}
	return records, nil
}
