package scanner

import (
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

const synReplyTimeout = 2 * time.Second

// InitSynFilter validates that raw packet capture is usable before a scan
// enables the SYN pre-filter. Returns an error when libpcap is missing or
// privileges are insufficient.
func InitSynFilter() error {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return fmt.Errorf("syn prefilter requires root privileges and libpcap: %w", err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("no capture devices available for syn prefilter")
	}
	return nil
}

// synPortOpen sends a single TCP SYN to host:port and watches for the reply
// without completing the handshake. A SYN-ACK means open; RST or silence
// means the full status exchange is not worth attempting.
func synPortOpen(host string, port uint16) (bool, error) {
	srcIP, device, err := outboundInterface()
	if err != nil {
		return false, err
	}

	dstIPs, err := net.LookupIP(host)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", host, err)
	}
	dstIP := dstIPs[0].To4()
	if dstIP == nil {
		return false, fmt.Errorf("%s has no IPv4 address", host)
	}

	handle, err := pcap.OpenLive(device.Name, 65535, false, synReplyTimeout)
	if err != nil {
		return false, fmt.Errorf("open capture on %s: %w", device.Name, err)
	}
	defer handle.Close()

	filter := fmt.Sprintf("tcp and src host %s and src port %d and dst host %s", dstIP, port, srcIP)
	if err := handle.SetBPFFilter(filter); err != nil {
		return false, fmt.Errorf("set capture filter: %w", err)
	}

	ipLayer := &layers.IPv4{
		SrcIP:    srcIP,
		DstIP:    dstIP,
		Protocol: layers.IPProtocolTCP,
		TTL:      64,
	}
	tcpLayer := &layers.TCP{
		SrcPort: layers.TCPPort(uint16(rand.Intn(65535-1024) + 1024)),
		DstPort: layers.TCPPort(port),
		SYN:     true,
		Seq:     rand.Uint32(),
	}
	if err := tcpLayer.SetNetworkLayerForChecksum(ipLayer); err != nil {
		return false, err
	}

	buffer := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buffer, opts, ipLayer, tcpLayer); err != nil {
		return false, err
	}
	if err := handle.WritePacketData(buffer.Bytes()); err != nil {
		return false, fmt.Errorf("send syn: %w", err)
	}

	deadline := time.After(synReplyTimeout)
	packets := gopacket.NewPacketSource(handle, handle.LinkType()).Packets()
	for {
		select {
		case packet := <-packets:
			if packet == nil {
				return false, nil
			}
			tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
			if !ok {
				continue
			}
			if tcp.SYN && tcp.ACK {
				return true, nil
			}
			if tcp.RST {
				return false, nil
			}
		case <-deadline:
			return false, nil
		}
	}
}

// outboundInterface picks the first non-loopback interface carrying an IPv4
// address.
func outboundInterface() (net.IP, *net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, nil, err
	}
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4, iface, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("no usable network interface for syn prefilter")
}
