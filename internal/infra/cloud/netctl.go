package cloud

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// NetworkController owns the node's outbound network configuration: which
// DNS resolver and which local source address the HTTP client and probers
// dial through. Recovery strategies rotate these when the link is bad.
type NetworkController struct {
	mu sync.Mutex

	resolvers   []string // host:port, index 0 reserved for the system default
	resolverIdx int
	interfaces  []string // local IPs, index 0 reserved for the default route
	ifaceIdx    int

	onChange []func()
}

// NewNetworkController takes the configured fallback resolvers and local
// interface addresses. Empty lists disable the corresponding rotation.
func NewNetworkController(altResolvers, altInterfaces []string) *NetworkController {
	return &NetworkController{
		resolvers:  append([]string{""}, altResolvers...),
		interfaces: append([]string{""}, altInterfaces...),
	}
}

// OnChange registers a callback invoked after any rotation, so dependents
// can rebuild their transports.
func (n *NetworkController) OnChange(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = append(n.onChange, fn)
}

// RotateResolver switches to the next configured resolver and returns its
// address ("" means the system default).
func (n *NetworkController) RotateResolver() (string, error) {
	n.mu.Lock()
	if len(n.resolvers) <= 1 {
		n.mu.Unlock()
		return "", fmt.Errorf("no alternate resolvers configured")
	}
	n.resolverIdx = (n.resolverIdx + 1) % len(n.resolvers)
	addr := n.resolvers[n.resolverIdx]
	callbacks := append([]func(){}, n.onChange...)
	n.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return addr, nil
}

// RotateInterface switches to the next configured local source address.
func (n *NetworkController) RotateInterface() (string, error) {
	n.mu.Lock()
	if len(n.interfaces) <= 1 {
		n.mu.Unlock()
		return "", fmt.Errorf("no alternate interfaces configured")
	}
	n.ifaceIdx = (n.ifaceIdx + 1) % len(n.interfaces)
	addr := n.interfaces[n.ifaceIdx]
	callbacks := append([]func(){}, n.onChange...)
	n.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return addr, nil
}

// CurrentResolver returns the active resolver address, "" for default.
func (n *NetworkController) CurrentResolver() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resolvers[n.resolverIdx]
}

// CurrentInterface returns the active local source address, "" for default.
func (n *NetworkController) CurrentInterface() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.interfaces[n.ifaceIdx]
}

// Dialer builds a net.Dialer honoring the current resolver and interface.
func (n *NetworkController) Dialer() *net.Dialer {
	n.mu.Lock()
	resolver := n.resolvers[n.resolverIdx]
	iface := n.interfaces[n.ifaceIdx]
	n.mu.Unlock()

	d := &net.Dialer{Timeout: 10 * time.Second}

	if iface != "" {
		if ip := net.ParseIP(iface); ip != nil {
			d.LocalAddr = &net.TCPAddr{IP: ip}
		}
	}

	if resolver != "" {
		resolverAddr := resolver
		d.Resolver = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				inner := net.Dialer{Timeout: 5 * time.Second}
				return inner.DialContext(ctx, network, resolverAddr)
			},
		}
	}

	return d
}
