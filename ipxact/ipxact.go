// Package ipxact implements the IP-XACT Serializer (spec §4.6): given a
// Module, its matched BusInterfaces, and a target schema revision, it
// emits one IP-XACT component XML document. Every Module port is
// emitted under model/ports, so residual ports need no separate input.
//
// Output is hand-assembled with a small node tree (addNode/addTextNode/
// addAttr) and a recursive dump writer, mirroring the teacher's own
// XMLNode/Dump idiom in mra/mame2mra.go, rather than tagged-struct
// encoding/xml marshaling — the element *names* here are prefixed by
// revision at runtime, the same shape of problem the teacher's own
// runtime-computed node names solve.
package ipxact

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jtbus/sv2ipxact/model"
)

// Revision selects the target IP-XACT (IEEE 1685) schema edition.
type Revision int

const (
	Rev2009 Revision = iota
	Rev2014
	Rev2022
)

type revisionInfo struct {
	prefix         string
	xmlns          string
	schemaLocation string
}

var revisions = map[Revision]revisionInfo{
	Rev2009: {
		prefix:         "spirit",
		xmlns:          "http://www.spiritconsortium.org/XMLSchema/SPIRIT/1685-2009",
		schemaLocation: "http://www.spiritconsortium.org/XMLSchema/SPIRIT/1685-2009 http://www.spiritconsortium.org/XMLSchema/SPIRIT/1685-2009/index.xsd",
	},
	Rev2014: {
		prefix:         "ipxact",
		xmlns:          "http://www.accellera.org/XMLSchema/IPXACT/1685-2014",
		schemaLocation: "http://www.accellera.org/XMLSchema/IPXACT/1685-2014 http://www.accellera.org/XMLSchema/IPXACT/1685-2014/index.xsd",
	},
	Rev2022: {
		prefix:         "ipxact",
		xmlns:          "http://www.accellera.org/XMLSchema/IPXACT/1685-2022",
		schemaLocation: "http://www.accellera.org/XMLSchema/IPXACT/1685-2022 http://www.accellera.org/XMLSchema/IPXACT/1685-2022/index.xsd",
	},
}

// SchemaLocation returns the xsi:schemaLocation pair (namespace URI and
// index.xsd URL) a Validator would fetch to check a document rendered
// under r. It is the same table Render uses for the document's own
// xmlns/schemaLocation attributes.
func (r Revision) SchemaLocation() string {
	return revisions[r].schemaLocation
}

// ParseRevision accepts the CLI's revision selector ("2009", "2014",
// "2022").
func ParseRevision(s string) (Revision, error) {
	switch strings.TrimSpace(s) {
	case "2009":
		return Rev2009, nil
	case "2014":
		return Rev2014, nil
	case "2022":
		return Rev2022, nil
	}
	return 0, fmt.Errorf("ipxact: unknown revision %q", s)
}

// Document carries everything the serializer needs to emit one
// component: the parsed Module, the matcher's accepted interfaces, the
// source file path (for the fileSet), and the VLNV the generated
// component itself is identified by.
type Document struct {
	Module     *model.Module
	Interfaces []model.BusInterface
	SourceFile string
	Vendor     string
	Library    string
	Version    string
}

// node is one element of the hand-built output tree.
type node struct {
	name     string
	text     string
	attrs    []attr
	children []*node
}

type attr struct{ name, value string }

func newNode(name string) *node { return &node{name: name} }

func (n *node) addNode(name string) *node {
	c := newNode(name)
	n.children = append(n.children, c)
	return c
}

func (n *node) addTextNode(name, text string) *node {
	c := n.addNode(name)
	c.text = text
	return c
}

func (n *node) addAttr(name, value string) *node {
	n.attrs = append(n.attrs, attr{name, value})
	return n
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

func (n *node) dump(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)
	b.WriteString("<")
	b.WriteString(n.name)
	for _, a := range n.attrs {
		fmt.Fprintf(b, " %s=\"%s\"", a.name, escapeXML(a.value))
	}
	switch {
	case len(n.children) > 0:
		b.WriteString(">\n")
		for _, c := range n.children {
			c.dump(b, depth+1)
		}
		b.WriteString(indent)
		fmt.Fprintf(b, "</%s>\n", n.name)
	case n.text != "":
		fmt.Fprintf(b, ">%s</%s>\n", escapeXML(n.text), n.name)
	default:
		b.WriteString("/>\n")
	}
}

// Render builds the component document for rev and returns the
// serialized XML text. Output ordering is purely a function of d and
// rev, satisfying §4.6's byte-identical-on-repeat-runs requirement.
func Render(d Document, rev Revision) string {
	info := revisions[rev]
	p := info.prefix

	root := newNode(p + ":component")
	root.addAttr("xmlns:"+p, info.xmlns)
	root.addAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	root.addAttr("xsi:schemaLocation", info.schemaLocation)

	vendor, library, version := d.Vendor, d.Library, d.Version
	if vendor == "" {
		vendor = "user"
	}
	if library == "" {
		library = "user"
	}
	if version == "" {
		version = "1.0"
	}

	root.addTextNode(p+":vendor", vendor)
	root.addTextNode(p+":library", library)
	root.addTextNode(p+":name", d.Module.Name)
	root.addTextNode(p+":version", version)

	sorted := sortedInterfaces(d.Interfaces)

	if len(sorted) > 0 {
		addBusInterfaces(root, p, sorted)
	}
	addAddressSpaces(root, p, sorted)
	addMemoryMaps(root, p, sorted)
	addModel(root, p, d.Module, sorted)
	addParameters(root, p, d.Module)
	addFileSets(root, p, d.SourceFile)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	root.dump(&b, 0)
	return b.String()
}

// sortedInterfaces orders BusInterfaces by name, lexicographically, per
// §4.6's determinism rule.
func sortedInterfaces(ifs []model.BusInterface) []model.BusInterface {
	out := append([]model.BusInterface{}, ifs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func addBusInterfaces(root *node, p string, ifs []model.BusInterface) {
	busIfsNode := root.addNode(p + ":busInterfaces")
	for _, bi := range ifs {
		biNode := busIfsNode.addNode(p + ":busInterface")
		biNode.addTextNode(p+":name", bi.Name)

		busType := biNode.addNode(p + ":busType")
		addVLNVAttrs(busType, p, bi.Bus.VLNV)

		absType := biNode.addNode(p + ":abstractionTypes")
		absRef := absType.addNode(p + ":abstractionType")
		addVLNVAttrs(absRef, p, bi.Abstraction.VLNV)

		modeNode := biNode.addNode(p + ":" + string(bi.Role))
		if bi.AddressSpace != nil {
			ref := modeNode.addNode(p + ":addressSpaceRef")
			ref.addAttr(p+":addressSpaceRef", bi.AddressSpace.Name)
		}
		if bi.MemoryMap != nil {
			ref := modeNode.addNode(p + ":memoryMapRef")
			ref.addAttr(p+":memoryMapRef", bi.MemoryMap.Name)
		}

		if len(bi.PortMaps) > 0 {
			portMapsNode := biNode.addNode(p + ":portMaps")
			for _, pm := range bi.PortMaps {
				pmNode := portMapsNode.addNode(p + ":portMap")
				lp := pmNode.addNode(p + ":logicalPort")
				lp.addTextNode(p+":name", pm.LogicalName)
				pp := pmNode.addNode(p + ":physicalPort")
				pp.addTextNode(p+":name", pm.PhysicalName)
				if pm.Left != nil && pm.Right != nil {
					vec := pp.addNode(p + ":partSelect")
					rng := vec.addNode(p + ":range")
					rng.addTextNode(p+":left", strconv.Itoa(*pm.Left))
					rng.addTextNode(p+":right", strconv.Itoa(*pm.Right))
				}
			}
		}

		if len(bi.Params) > 0 {
			paramsNode := biNode.addNode(p + ":parameters")
			for _, bp := range bi.Params {
				paramNode := paramsNode.addNode(p + ":parameter")
				paramNode.addTextNode(p+":name", bp.Name)
				paramNode.addTextNode(p+":value", bp.Value)
			}
		}
	}
}

func addVLNVAttrs(n *node, p string, v model.VLNV) {
	n.addAttr(p+":vendor", v.Vendor)
	n.addAttr(p+":library", v.Library)
	n.addAttr(p+":name", v.Name)
	n.addAttr(p+":version", v.Version)
}

func addAddressSpaces(root *node, p string, ifs []model.BusInterface) {
	var spaces []*model.AddressSpace
	for i := range ifs {
		if ifs[i].AddressSpace != nil {
			spaces = append(spaces, ifs[i].AddressSpace)
		}
	}
	if len(spaces) == 0 {
		return
	}
	container := root.addNode(p + ":addressSpaces")
	for _, as := range spaces {
		n := container.addNode(p + ":addressSpace")
		n.addTextNode(p+":name", as.Name)
		rng := n.addNode(p + ":range")
		rng.text = strconv.FormatUint(as.Range, 10)
		width := n.addNode(p + ":width")
		width.text = strconv.Itoa(as.Width)
	}
}

func addMemoryMaps(root *node, p string, ifs []model.BusInterface) {
	var maps []*model.MemoryMap
	for i := range ifs {
		if ifs[i].MemoryMap != nil {
			maps = append(maps, ifs[i].MemoryMap)
		}
	}
	if len(maps) == 0 {
		return
	}
	container := root.addNode(p + ":memoryMaps")
	for _, mm := range maps {
		n := container.addNode(p + ":memoryMap")
		n.addTextNode(p+":name", mm.Name)
		block := n.addNode(p + ":addressBlock")
		block.addTextNode(p+":name", mm.AddressBlock)
		block.addTextNode(p+":baseAddress", "0x"+strconv.FormatUint(mm.BaseAddress, 16))
		block.addTextNode(p+":range", strconv.FormatUint(mm.Range, 10))
		block.addTextNode(p+":width", strconv.Itoa(mm.Width))
		block.addTextNode(p+":usage", mm.Usage)
	}
}

// addModel emits model/views/ports, including every physical port of
// the Module exactly once, regardless of whether a busInterface
// references it (§4.6's enforced invariant).
func addModel(root *node, p string, mod *model.Module, ifs []model.BusInterface) {
	modelNode := root.addNode(p + ":model")

	views := modelNode.addNode(p + ":views")
	view := views.addNode(p + ":view")
	view.addTextNode(p+":name", "rtl")
	view.addTextNode(p+":envIdentifier", "verilog")
	view.addTextNode(p+":language", "systemVerilog")

	portsNode := modelNode.addNode(p + ":ports")
	for _, port := range mod.Ports {
		addPort(portsNode, p, port)
	}
}

func addPort(parent *node, p string, port model.Port) {
	portNode := parent.addNode(p + ":port")
	portNode.addTextNode(p+":name", port.Name)

	wire := portNode.addNode(p + ":wire")
	wire.addTextNode(p+":direction", string(port.Direction))

	if left, right, ok := vectorBounds(port); ok {
		vec := wire.addNode(p + ":vector")
		vec.addTextNode(p+":left", left)
		vec.addTextNode(p+":right", right)
	}
}

// vectorBounds computes the <left>/<right> pair for a port's declared
// width, preserving the source range's endianness (§3/§4.6).
func vectorBounds(port model.Port) (left, right string, ok bool) {
	if port.Width == nil {
		return "", "", false
	}
	if n, isLit := port.Width.Literal(); isLit {
		if port.Endian == model.LittleEndian {
			return "0", strconv.Itoa(n - 1), true
		}
		return strconv.Itoa(n - 1), "0", true
	}
	parts := strings.SplitN(port.Width.Raw, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func addParameters(root *node, p string, mod *model.Module) {
	var externalized []model.Parameter
	for _, prm := range mod.Parameters {
		if !prm.IsLocal {
			externalized = append(externalized, prm)
		}
	}
	if len(externalized) == 0 {
		return
	}
	container := root.addNode(p + ":parameters")
	for _, prm := range externalized {
		n := container.addNode(p + ":parameter")
		n.addTextNode(p+":name", prm.Name)
		n.addTextNode(p+":value", prm.Default)
	}
}

func addFileSets(root *node, p string, sourceFile string) {
	if sourceFile == "" {
		return
	}
	container := root.addNode(p + ":fileSets")
	fs := container.addNode(p + ":fileSet")
	fs.addTextNode(p+":name", "sourceFiles")
	file := fs.addNode(p + ":file")
	file.addTextNode(p+":name", sourceFile)
	file.addTextNode(p+":fileType", "systemVerilogSource")
}
