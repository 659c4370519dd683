// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4/nclient4"
	"github.com/vishvananda/netlink"
	"golang.org/x/sync/errgroup"
)

// dhcpTimeout bounds the joint wait for all DHCP clients. An interface
// without a DHCP server on it must not stall the boot forever.
const dhcpTimeout = 30 * time.Second

// WithLoopback returns a [Func] that brings the loopback interface up.
func WithLoopback() Func {
	return func(_ *State) error {
		link, err := netlink.LinkByName("lo")
		if err != nil {
			return fmt.Errorf("loopback: %w", err)
		}

		if err := netlink.LinkSetUp(link); err != nil {
			return fmt.Errorf("loopback up: %w", err)
		}

		return nil
	}
}

// WithDHCP returns a [Func] that requests a DHCP lease on every
// candidate interface, if DHCP was requested.
//
// One client runs per interface, all in parallel, and the boot
// continues only once every one of them finished.
func WithDHCP() Func {
	return func(state *State) error {
		if !state.Config.DHCP {
			return nil
		}

		return ConfigureDHCP(context.Background())
	}
}

// ConfigureDHCP runs one DHCP client per candidate interface and
// configures address, default route and resolver from the leases.
func ConfigureDHCP(ctx context.Context) error {
	links, err := candidateLinks()
	if err != nil {
		return err
	}

	if len(links) == 0 {
		slog.Info("No interfaces for DHCP found")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, dhcpTimeout)
	defer cancel()

	nameServers := make([][]net.IP, len(links))

	var group errgroup.Group

	for idx, link := range links {
		group.Go(func() error {
			servers, err := configureLink(ctx, link)
			if err != nil {
				return fmt.Errorf("dhcp %s: %w", link.Attrs().Name, err)
			}

			nameServers[idx] = servers

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err //nolint:wrapcheck
	}

	var servers []net.IP
	for _, linkServers := range nameServers {
		servers = append(servers, linkServers...)
	}

	return bindResolvConf(servers)
}

// candidateLinks returns the interfaces DHCP runs on: all that are
// neither loopback nor backed by a virtual device.
func candidateLinks() ([]netlink.Link, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	var candidates []netlink.Link

	for _, link := range links {
		attrs := link.Attrs()

		if attrs.Flags&net.FlagLoopback != 0 {
			continue
		}

		if isVirtualDevice(attrs.Name) {
			continue
		}

		candidates = append(candidates, link)
	}

	return candidates, nil
}

// isVirtualDevice reports whether the interface is backed by a virtual
// device, like a bridge or bond. Their sysfs entries live below the
// virtual device tree.
func isVirtualDevice(name string) bool {
	target, err := os.Readlink(filepath.Join("/sys/class/net", name))
	if err != nil {
		return false
	}

	return strings.Contains(target, "/devices/virtual/")
}

// configureLink brings the interface up, requests a lease and applies
// it. It returns the name servers offered with the lease.
func configureLink(ctx context.Context, link netlink.Link) ([]net.IP, error) {
	name := link.Attrs().Name

	if err := netlink.LinkSetUp(link); err != nil {
		return nil, fmt.Errorf("link up: %w", err)
	}

	client, err := nclient4.New(name)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	defer client.Close()

	lease, err := client.Request(ctx)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	ack := lease.ACK

	mask := ack.SubnetMask()
	if mask == nil {
		mask = ack.YourIPAddr.DefaultMask()
	}

	addr := &netlink.Addr{
		IPNet: &net.IPNet{IP: ack.YourIPAddr, Mask: mask},
	}

	if err := netlink.AddrAdd(link, addr); err != nil {
		return nil, fmt.Errorf("assign %s: %w", addr.IPNet, err)
	}

	if routers := ack.Router(); len(routers) > 0 {
		route := &netlink.Route{
			LinkIndex: link.Attrs().Index,
			Gw:        routers[0],
		}

		if err := netlink.RouteAdd(route); err != nil {
			return nil, fmt.Errorf("default route %s: %w", routers[0], err)
		}
	}

	slog.Info("Configured interface", "name", name, "addr", addr.IPNet)

	return ack.DNS(), nil
}

// bindResolvConf points /etc/resolv.conf at the given name servers via
// an ephemeral bind, keeping the host's file untouched.
func bindResolvConf(servers []net.IP) error {
	if len(servers) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, server := range servers {
		fmt.Fprintf(&sb, "nameserver %s\n", server)
	}

	return writeAndBind("resolv.conf", 0o644, sb.String(), "/etc/resolv.conf")
}
