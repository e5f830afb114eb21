package main

// Shared connection plumbing: flags/profiles resolve to an open client.

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/config"
	uferrors "github.com/tturner/ipmiq/internal/errors"
	"github.com/tturner/ipmiq/internal/ipmi/client"
	"github.com/tturner/ipmiq/internal/ipmi/session"
	"github.com/tturner/ipmiq/internal/ipmi/transport"
)

type globalFlags struct {
	configPath  string
	profile     string
	host        string
	device      string
	iface       string
	username    string
	passwordEnv string
	privilege   string
	verbose     bool
	debug       bool
	logFile     string
}

// resolveProfile merges the config file (when given) with flag overrides.
func (g *globalFlags) resolveProfile() (*config.Profile, error) {
	var p *config.Profile
	if g.configPath != "" {
		cfg, err := config.Load(g.configPath)
		if err != nil {
			return nil, err
		}
		p, err = cfg.Get(g.profile)
		if err != nil {
			return nil, err
		}
	} else {
		p = &config.Profile{Name: "cli"}
	}

	if g.host != "" {
		p.Host = g.host
	}
	if g.device != "" {
		p.Device = g.device
		if g.iface == "" && p.Interface == "" {
			p.Interface = config.InterfaceOpen
		}
	}
	if g.iface != "" {
		p.Interface = config.Interface(g.iface)
	}
	if g.username != "" {
		p.Username = g.username
	}
	if g.passwordEnv != "" {
		p.PasswordEnv = g.passwordEnv
	}
	if g.privilege != "" {
		p.Privilege = g.privilege
	}

	if p.EffectiveInterface() == config.InterfaceOpen {
		if p.Device == "" {
			p.Device = "/dev/ipmi0"
		}
		return p, nil
	}
	if p.Host == "" {
		return nil, fmt.Errorf("no BMC host given: use --host, or --config with a profile")
	}
	return p, nil
}

// credentials assembles session credentials from the profile. When no
// password resolves and the profile names no password environment variable,
// it prompts for the password interactively. Nothing else is prompted for,
// and it does not check whether stdin is a terminal.
func credentials(p *config.Profile) (session.Credentials, error) {
	password, err := p.ResolvePassword()
	if err != nil {
		return session.Credentials{}, err
	}
	kg, err := p.KG()
	if err != nil {
		return session.Credentials{}, err
	}
	priv, err := p.PrivilegeLevel()
	if err != nil {
		return session.Credentials{}, err
	}

	creds := session.Credentials{
		Username:  p.Username,
		Password:  password,
		KG:        kg,
		Privilege: priv,
	}

	if len(creds.Password) == 0 && p.PasswordEnv == "" {
		var entered string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Password for %s@%s", p.Username, p.Host)).
				EchoMode(huh.EchoModePassword).
				Value(&entered),
		))
		if err := form.Run(); err != nil {
			return session.Credentials{}, fmt.Errorf("read password: %w", err)
		}
		creds.Password = []byte(entered)
	}
	return creds, nil
}

// connect opens the profile's transport, activates a session when one is
// needed, and returns the client plus a teardown func.
func connect(ctx context.Context, g *globalFlags) (*client.Client, func(), error) {
	p, err := g.resolveProfile()
	if err != nil {
		return nil, nil, err
	}

	switch p.EffectiveInterface() {
	case config.InterfaceOpen:
		file, err := transport.OpenFile(p.Device)
		if err != nil {
			return nil, nil, uferrors.WrapNetworkError(err, p.Device)
		}
		c := client.New(file)
		return c, func() { c.Close() }, nil

	case config.InterfaceLAN, config.InterfaceLANPlus:
		creds, err := credentials(p)
		if err != nil {
			return nil, nil, err
		}
		lan, err := transport.DialLAN(p.Addr())
		if err != nil {
			return nil, nil, uferrors.WrapNetworkError(err, p.Addr())
		}
		lan.SetTimeout(p.Timeout())

		if p.EffectiveInterface() == config.InterfaceLAN {
			err = lan.ActivateV15(ctx, creds)
		} else {
			err = lan.ActivateV2Plus(ctx, creds, rand.Uint32()|1)
		}
		if err != nil {
			lan.Close()
			return nil, nil, uferrors.WrapSessionError(err, p.Addr())
		}

		c := client.New(lan)
		return c, func() { c.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown interface %q", p.Interface)
}

func newValidateConfigCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Validate a profiles file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s: %d profile(s) OK\n", g.configPath, len(cfg.Profiles))
			return nil
		},
	}
}
