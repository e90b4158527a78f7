// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package softtgen

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/openconfig/tgenutils/internal/capturevalidation"
	"github.com/openconfig/tgenutils/internal/tgen"
)

// FrameSpec describes the frames of a stream. Empty addresses get defaults.
type FrameSpec struct {
	SrcMAC, DstMAC string
	// VLAN adds an 802.1Q tag when non zero.
	VLAN         uint16
	SrcIP, DstIP string
	// TCP selects a TCP header instead of UDP.
	TCP              bool
	SrcPort, DstPort uint16
	DSCP             uint8
	// Size is the frame length; frames are padded up to it.
	Size int
}

func (f FrameSpec) withDefaults() FrameSpec {
	if f.SrcMAC == "" {
		f.SrcMAC = "00:00:01:00:00:01"
	}
	if f.DstMAC == "" {
		f.DstMAC = "00:00:02:00:00:01"
	}
	if f.SrcIP == "" {
		f.SrcIP = "10.1.1.1"
	}
	if f.DstIP == "" {
		f.DstIP = "10.2.2.2"
	}
	if f.SrcPort == 0 {
		f.SrcPort = 49152
	}
	if f.DstPort == 0 {
		f.DstPort = 3784
	}
	if f.Size == 0 {
		f.Size = 64
	}
	return f
}

// Build serializes one frame of the stream.
func (f FrameSpec) Build() ([]byte, error) {
	f = f.withDefaults()
	src, err := net.ParseMAC(f.SrcMAC)
	if err != nil {
		return nil, err
	}
	dst, err := net.ParseMAC(f.DstMAC)
	if err != nil {
		return nil, err
	}
	srcIP, dstIP := net.ParseIP(f.SrcIP).To4(), net.ParseIP(f.DstIP).To4()
	if srcIP == nil || dstIP == nil {
		return nil, fmt.Errorf("invalid IPv4 addresses %q, %q", f.SrcIP, f.DstIP)
	}

	eth := &layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version: 4,
		IHL:     5,
		TOS:     f.DSCP << 2,
		TTL:     64,
		SrcIP:   srcIP,
		DstIP:   dstIP,
	}
	stack := []gopacket.SerializableLayer{eth}
	if f.VLAN != 0 {
		eth.EthernetType = layers.EthernetTypeDot1Q
		stack = append(stack, &layers.Dot1Q{VLANIdentifier: f.VLAN, Type: layers.EthernetTypeIPv4})
	}
	stack = append(stack, ip)
	var l4 int
	if f.TCP {
		ip.Protocol = layers.IPProtocolTCP
		tcp := &layers.TCP{SrcPort: layers.TCPPort(f.SrcPort), DstPort: layers.TCPPort(f.DstPort), Window: 65535}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		stack = append(stack, tcp)
		l4 = 20
	} else {
		ip.Protocol = layers.IPProtocolUDP
		udp := &layers.UDP{SrcPort: layers.UDPPort(f.SrcPort), DstPort: layers.UDPPort(f.DstPort)}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		stack = append(stack, udp)
		l4 = 8
	}
	header := 14 + 20 + l4
	if f.VLAN != 0 {
		header += 4
	}
	stack = append(stack, gopacket.Payload(make([]byte, max(f.Size-header, 0))))

	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}, stack...); err != nil {
		return nil, fmt.Errorf("cannot serialize frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Capture returns the frames captured on a port in the layout of the packet
// statistics of the scapy generator.
func (s *Simulator) Capture(handle string) (tgen.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.port(handle)
	if err != nil {
		return tgen.Stats{}, err
	}
	return capturevalidation.EncodeBlob(handle, p.capture)
}

// WritePCAP writes the frames captured on a port as a pcap file.
func (s *Simulator) WritePCAP(w io.Writer, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.port(handle)
	if err != nil {
		return err
	}
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("cannot write pcap header: %w", err)
	}
	ts := time.Unix(0, 0)
	for i, f := range p.capture {
		ci := gopacket.CaptureInfo{Timestamp: ts.Add(time.Duration(i) * time.Microsecond), CaptureLength: len(f), Length: len(f)}
		if err := pw.WritePacket(ci, f); err != nil {
			return fmt.Errorf("cannot write frame %d: %w", i, err)
		}
	}
	return nil
}
