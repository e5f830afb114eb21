package config

// Connection profile loading and validation for ipmiq

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	uferrors "github.com/tturner/ipmiq/internal/errors"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// Interface selects how a profile reaches its BMC.
type Interface string

const (
	// InterfaceLAN uses IPMI 1.5 sessions over RMCP.
	InterfaceLAN Interface = "lan"
	// InterfaceLANPlus uses RMCP+ (IPMI 2.0) sessions.
	InterfaceLANPlus Interface = "lanplus"
	// InterfaceOpen uses the local OpenIPMI character device.
	InterfaceOpen Interface = "open"
)

// Profile describes one BMC connection.
type Profile struct {
	Name      string    `yaml:"name"`
	Interface Interface `yaml:"interface"`

	// LAN interfaces.
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// Open interface.
	Device string `yaml:"device,omitempty"`

	Username string `yaml:"username,omitempty"`
	// Password is read from PasswordEnv when set, falling back to the
	// inline value.
	Password    string `yaml:"password,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`
	// KGHex is the optional BMC key for RMCP+, hex encoded.
	KGHex     string `yaml:"kg_hex,omitempty"`
	Privilege string `yaml:"privilege,omitempty"`

	TimeoutMs int `yaml:"timeout_ms,omitempty"`
}

// Config is the root of a profiles file.
type Config struct {
	DefaultProfile string    `yaml:"default_profile,omitempty"`
	Profiles       []Profile `yaml:"profiles"`
}

// Load reads and validates a profiles file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, uferrors.WrapConfigError(err, path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, uferrors.WrapConfigError(fmt.Errorf("parse yaml: %w", err), path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, uferrors.WrapConfigError(err, path)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints on every profile.
func (c *Config) Validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}

	seen := make(map[string]bool, len(c.Profiles))
	for i := range c.Profiles {
		p := &c.Profiles[i]
		if p.Name == "" {
			return fmt.Errorf("profile %d: missing name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate profile name %q", p.Name)
		}
		seen[p.Name] = true

		if err := p.validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}

	if c.DefaultProfile != "" && !seen[c.DefaultProfile] {
		return fmt.Errorf("default_profile %q does not exist", c.DefaultProfile)
	}
	return nil
}

func (p *Profile) validate() error {
	switch p.Interface {
	case "", InterfaceLANPlus, InterfaceLAN:
		if p.Host == "" {
			return fmt.Errorf("lan interface needs a host")
		}
		if p.Username == "" {
			return fmt.Errorf("lan interface needs a username")
		}
	case InterfaceOpen:
		if p.Device == "" {
			return fmt.Errorf("open interface needs a device path")
		}
	default:
		return fmt.Errorf("unknown interface %q", p.Interface)
	}

	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("port %d out of range", p.Port)
	}
	if _, err := p.PrivilegeLevel(); err != nil {
		return err
	}
	if _, err := p.KG(); err != nil {
		return err
	}
	if len(p.Username) > 16 {
		return fmt.Errorf("username longer than 16 bytes")
	}
	return nil
}

// Get returns the named profile, or the default when name is empty.
func (c *Config) Get(name string) (*Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" && len(c.Profiles) == 1 {
		return &c.Profiles[0], nil
	}
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("profile %q not found", name)
}

// EffectiveInterface resolves the default interface.
func (p *Profile) EffectiveInterface() Interface {
	if p.Interface == "" {
		return InterfaceLANPlus
	}
	return p.Interface
}

// ResolvePassword returns the password, preferring the environment
// variable when configured.
func (p *Profile) ResolvePassword() ([]byte, error) {
	if p.PasswordEnv != "" {
		v, ok := os.LookupEnv(p.PasswordEnv)
		if !ok {
			return nil, fmt.Errorf("password environment variable %s not set", p.PasswordEnv)
		}
		return []byte(v), nil
	}
	return []byte(p.Password), nil
}

// KG decodes the optional BMC key.
func (p *Profile) KG() ([]byte, error) {
	if p.KGHex == "" {
		return nil, nil
	}
	kg, err := hex.DecodeString(p.KGHex)
	if err != nil {
		return nil, fmt.Errorf("kg_hex: %w", err)
	}
	if len(kg) != 20 {
		return nil, fmt.Errorf("kg_hex must decode to 20 bytes, got %d", len(kg))
	}
	return kg, nil
}

// PrivilegeLevel parses the requested privilege, defaulting to
// administrator.
func (p *Profile) PrivilegeLevel() (protocol.PrivilegeLevel, error) {
	switch p.Privilege {
	case "", "administrator", "admin":
		return protocol.PrivilegeAdministrator, nil
	case "callback":
		return protocol.PrivilegeCallback, nil
	case "user":
		return protocol.PrivilegeUser, nil
	case "operator":
		return protocol.PrivilegeOperator, nil
	case "oem":
		return protocol.PrivilegeOEM, nil
	}
	return 0, fmt.Errorf("unknown privilege %q", p.Privilege)
}

// Timeout resolves the per-exchange deadline.
func (p *Profile) Timeout() time.Duration {
	if p.TimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Addr joins host and port, applying the RMCP default port.
func (p *Profile) Addr() string {
	port := p.Port
	if port == 0 {
		port = 623
	}
	return fmt.Sprintf("%s:%d", p.Host, port)
}
