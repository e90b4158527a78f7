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

package capturevalidation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// FramesFromPCAP reads every frame of a pcap file.
func FramesFromPCAP(data []byte) ([]Frame, error) {
	r, err := pcapgo.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read pcap header: %w", err)
	}
	var frames []Frame
	for {
		pkt, _, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("could not read frame %d: %w", len(frames), err)
		}
		frames = append(frames, Frame(pkt))
	}
}

// Header names of decoded frames.
const (
	headerEthernet = "Ethernet II"
	headerVLAN     = "802.1Q Virtual LAN"
	headerIPv4     = "Internet Protocol Version 4"
	headerIPv6     = "Internet Protocol Version 6"
	headerTCP      = "Transmission Control Protocol"
	headerUDP      = "User Datagram Protocol"
	headerGRE      = "Generic Routing Encapsulation"
)

func dec[T ~uint8 | ~uint16 | ~uint32](v T) string {
	return strconv.FormatUint(uint64(v), 10)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

type headerBuilder struct {
	node *FieldNode
}

func newHeader(name string) headerBuilder {
	return headerBuilder{node: &FieldNode{Key: name}}
}

func (h headerBuilder) field(name, value string) headerBuilder {
	h.node.Children = append(h.node.Children, &FieldNode{Key: h.node.Key, DisplayName: name, Value: value})
	return h
}

// DecodeFields decodes an Ethernet frame into a field tree with one child
// per decoded header, in the layout MatchFields expects.
func DecodeFields(f Frame) *FieldNode {
	root := &FieldNode{Key: "frame"}
	pkt := gopacket.NewPacket(f, layers.LayerTypeEthernet, gopacket.Default)
	for _, l := range pkt.Layers() {
		var h headerBuilder
		switch l := l.(type) {
		case *layers.Ethernet:
			h = newHeader(headerEthernet).
				field("Source", l.SrcMAC.String()).
				field("Destination", l.DstMAC.String()).
				field("Type", dec(uint16(l.EthernetType)))
		case *layers.Dot1Q:
			h = newHeader(headerVLAN).
				field("ID", dec(l.VLANIdentifier)).
				field("Priority", dec(l.Priority)).
				field("CFI", flag(l.DropEligible)).
				field("Type", dec(uint16(l.Type)))
		case *layers.IPv4:
			h = newHeader(headerIPv4).
				field("Version", dec(l.Version)).
				field("Header Length", dec(l.IHL*4)).
				field("Total Length", dec(l.Length)).
				field("Identification", dec(l.Id)).
				field("Precedence", dec(l.TOS>>5)).
				field("Reliability", dec((l.TOS>>2)&1)).
				field("Differentiated Services Codepoint", dec(l.TOS>>2)).
				field("Explicit Congestion Notification", dec(l.TOS&3)).
				field("More fragments", flag(l.Flags&layers.IPv4MoreFragments != 0)).
				field("Fragment offset", dec(l.FragOffset)).
				field("Time to live", dec(l.TTL)).
				field("Protocol", dec(uint8(l.Protocol))).
				field("Source", l.SrcIP.String()).
				field("Destination", l.DstIP.String())
		case *layers.IPv6:
			h = newHeader(headerIPv6).
				field("Source", l.SrcIP.String()).
				field("Destination", l.DstIP.String()).
				field("Protocol", dec(uint8(l.NextHeader)))
		case *layers.TCP:
			h = newHeader(headerTCP).
				field("Source Port", dec(uint16(l.SrcPort))).
				field("Destination Port", dec(uint16(l.DstPort)))
		case *layers.UDP:
			h = newHeader(headerUDP).
				field("Source Port", dec(uint16(l.SrcPort))).
				field("Destination Port", dec(uint16(l.DstPort)))
		case *layers.GRE:
			h = newHeader(headerGRE).
				field("Protocol Type", dec(uint16(l.Protocol))).
				field("Data", fmt.Sprintf("%X", l.LayerPayload()))
		default:
			continue
		}
		root.Children = append(root.Children, h.node)
	}
	return root
}

// MatchPCAP matches field selectors against the frames of a pcap file.
func MatchPCAP(data []byte, selectors, values []string) (int, bool, error) {
	frames, err := FramesFromPCAP(data)
	if err != nil {
		return -1, false, err
	}
	trees := make([]*FieldNode, len(frames))
	for i, f := range frames {
		trees[i] = DecodeFields(f)
	}
	return MatchFields(trees, selectors, values)
}
