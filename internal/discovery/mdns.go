// ABOUTME: mDNS service discovery for caplay stream servers
// ABOUTME: Handles both advertisement (ulawcast) and browsing (auplay -discover)
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service stream servers advertise
const ServiceType = "_caplay._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	// Path of the WebSocket endpoint and offered codecs, published as TXT records
	Path   string
	Codecs []string
	// BrowseTimeout bounds each query round (default 3s)
	BrowseTimeout time.Duration
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
}

// ServerInfo describes a discovered server
type ServerInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// URL returns the WebSocket address of the server
func (s *ServerInfo) URL() string {
	path := s.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(s.Host, fmt.Sprint(s.Port)), path)
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
	}
}

// Advertise publishes this stream server via mDNS until Stop
func (m *Manager) Advertise() error {
	ips, err := advertisedIPs()
	if err != nil {
		return fmt.Errorf("cannot advertise %s: %w", ServiceType, err)
	}

	txt := []string{"path=" + m.config.Path}
	if len(m.config.Codecs) > 0 {
		txt = append(txt, "codecs="+strings.Join(m.config.Codecs, ","))
	}
	zone, err := mdns.NewMDNSService(m.config.ServiceName, ServiceType, "", "", m.config.Port, ips, txt)
	if err != nil {
		return fmt.Errorf("invalid mDNS service %q: %w", m.config.ServiceName, err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		return fmt.Errorf("mDNS responder failed: %w", err)
	}

	log.Printf("Advertising %s as %s on port %d (%s)", m.config.ServiceName, ServiceType, m.config.Port, ips[0])

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for stream servers in the background; results arrive on Servers
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop queries in rounds of BrowseTimeout until Stop
func (m *Manager) browseLoop() {
	for m.ctx.Err() == nil {
		entries := make(chan *mdns.ServiceEntry, 10)
		forwarded := make(chan struct{})
		go m.forward(entries, forwarded)

		params := mdns.DefaultParams(ServiceType)
		params.Entries = entries
		params.Timeout = m.config.BrowseTimeout
		params.DisableIPv6 = true

		if err := mdns.Query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)
		<-forwarded
	}
}

// forward turns matching answers into ServerInfo values on the servers channel
func (m *Manager) forward(entries <-chan *mdns.ServiceEntry, done chan<- struct{}) {
	defer close(done)
	for entry := range entries {
		server := serverFromEntry(entry)
		if server == nil {
			continue
		}
		log.Printf("Discovered server: %s at %s:%d", server.Name, server.Host, server.Port)

		select {
		case m.servers <- server:
		case <-m.ctx.Done():
		}
	}
}

// Servers returns the channel of discovered servers
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// FindServer browses until the first server answers or ctx ends
func FindServer(ctx context.Context) (*ServerInfo, error) {
	m := NewManager(Config{})
	defer m.Stop()

	m.Browse()

	select {
	case server := <-m.Servers():
		return server, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no %s server found: %w", ServiceType, ctx.Err())
	}
}

// serverFromEntry keeps only answers for our service that carry an IPv4 address
func serverFromEntry(entry *mdns.ServiceEntry) *ServerInfo {
	if entry.AddrV4 == nil || !strings.Contains(entry.Name, ServiceType) {
		return nil
	}

	server := &ServerInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
	}
	for _, field := range entry.InfoFields {
		if path, ok := strings.CutPrefix(field, "path="); ok {
			server.Path = path
		}
	}
	return server
}

// advertisedIPs lists the IPv4 addresses of interfaces that are up and not loopback
func advertisedIPs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			log.Printf("Skipping interface %s: %v", iface.Name, err)
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLoopback() && !ip4.IsLinkLocalUnicast() {
				ips = append(ips, ip4)
			}
		}
	}

	if len(ips) == 0 {
		return nil, errors.New("no usable IPv4 address")
	}
	return ips, nil
}
