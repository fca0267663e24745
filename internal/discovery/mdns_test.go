package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/require"
)

func TestParseEntry(t *testing.T) {
	t.Parallel()

	entry := zeroconf.NewServiceEntry("garage", ServiceType, ServiceDomain)
	entry.HostName = "garage-pi.local."
	entry.Port = 50061
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.40")}
	entry.Text = []string{"version=v1.2.3"}

	endpoint, ok := parseEntry(entry)
	require.True(t, ok)
	require.Equal(t, Endpoint{
		Instance: "garage",
		HostName: "garage-pi.local.",
		Address:  "192.168.1.40:50061",
		Version:  "v1.2.3",
	}, endpoint)
}

func TestParseEntry_IPv6(t *testing.T) {
	t.Parallel()

	entry := zeroconf.NewServiceEntry("garage", ServiceType, ServiceDomain)
	entry.Port = 50061
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	endpoint, ok := parseEntry(entry)
	require.True(t, ok)
	require.Equal(t, "[fe80::1]:50061", endpoint.Address)
}

func TestParseEntry_Skips(t *testing.T) {
	t.Parallel()

	_, ok := parseEntry(nil)
	require.False(t, ok)

	noAddress := zeroconf.NewServiceEntry("garage", ServiceType, ServiceDomain)
	noAddress.Port = 50061

	_, ok = parseEntry(noAddress)
	require.False(t, ok)

	noPort := zeroconf.NewServiceEntry("garage", ServiceType, ServiceDomain)
	noPort.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.40")}

	_, ok = parseEntry(noPort)
	require.False(t, ok)
}
