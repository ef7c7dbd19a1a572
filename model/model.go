// Package model holds the data types shared by every stage of the
// SystemVerilog-to-IP-XACT pipeline: the parsed Module, the bus/abstraction
// catalog, and the matcher's output BusInterface set.
package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Direction is a port or logical-signal direction.
type Direction string

const (
	DirIn    Direction = "in"
	DirOut   Direction = "out"
	DirInout Direction = "inout"
)

// PortDirection returns the logical-side direction equivalent of a
// physical port direction (input->in, output->out, inout->inout).
func PortDirection(d Direction) Direction { return d }

var literalWidth = regexp.MustCompile(`^\s*\d+\s*$`)

// WidthExpr is a textual width expression, possibly parametric
// (e.g. "DATA_WIDTH-1:0"). No arithmetic is ever evaluated on it; the
// only interpretation performed is a literal-integer check.
type WidthExpr struct {
	Raw string // verbatim text between the brackets, e.g. "31:0" or "DATA_WIDTH-1:0"
}

// Literal reports whether Raw is a plain non-negative integer and, if so,
// its value. Used for exact-width comparisons during scoring (§4.5) and
// for emitting a numeric <left>/<right> vector in the serializer.
func (w WidthExpr) Literal() (int, bool) {
	if !literalWidth.MatchString(w.Raw) {
		return 0, false
	}
	n, err := strconv.Atoi(trimSpaces(w.Raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

func trimSpaces(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

// Endianness of a bit range, preserved from source (§3: "endianness of
// the range").
type Endianness int

const (
	EndianUnknown Endianness = iota
	BigEndian                // [high:low], e.g. [31:0]
	LittleEndian             // [low:high], e.g. [0:31]
)

// Port is a single physical port of a parsed Module.
type Port struct {
	Name             string
	Direction        Direction
	Signed           bool
	Width            *WidthExpr // nil for a scalar (1-bit) port
	PackedDims       []string   // additional packed dimensions, e.g. "[3:0]" arrays of the base width
	UnpackedDims     []string   // unpacked dimensions after the name, e.g. "[7:0]"
	Endian           Endianness
	TypeTok          string // opaque net-type/user-type token(s), e.g. "wire", "logic", a package-imported type name
	IsInterfaceRef   bool // `my_bus_if.master bus_m` style SV interface port
	InterfaceTypeTok string // opaque type token for interface/typedef'd ports
	Line, Col        int
}

// Parameter is a module parameter or localparam declaration.
type Parameter struct {
	Name        string
	TypeTok     string // opaque captured type token, e.g. "int", "logic[7:0]", "type"
	Default     string // textual default-value expression, verbatim
	IsLocal     bool   // localparam: excluded from externalized IP-XACT parameters
	Line, Col   int
}

// Module is the parsed top-level SystemVerilog module.
type Module struct {
	Name       string
	Parameters []Parameter
	Ports      []Port
	SourceFile string
}

// ParamByNormalizedToken finds the first non-local parameter whose
// normalized name contains tok as a token (§4.5 bus-parameter
// propagation), e.g. tok="DATA_WIDTH" matches a parameter named
// DATA_WIDTH, AXI_DATA_WIDTH or DATAWIDTH. The comparison is a
// case-insensitive substring match after underscores are removed from
// both names, so token boundaries are not checked (USERDATA_WIDTH also
// matches).
func (m *Module) ParamByNormalizedToken(tok string) (Parameter, bool) {
	target := normalizeToken(tok)
	for _, p := range m.Parameters {
		if p.IsLocal {
			continue
		}
		if hasToken(normalizeToken(p.Name), target) {
			return p, true
		}
	}
	return Parameter{}, false
}

func normalizeToken(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 32
		}
		out = append(out, c)
	}
	return string(out)
}

func hasToken(haystack, needle string) bool {
	// haystack and needle are both underscore-free-agnostic upper tokens;
	// a "contains as token" match collapses underscores on both sides.
	h := stripUnderscores(haystack)
	n := stripUnderscores(needle)
	if n == "" {
		return false
	}
	return containsSubstring(h, n)
}

func stripUnderscores(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func containsSubstring(h, n string) bool {
	if len(n) == 0 || len(n) > len(h) {
		return len(n) == 0
	}
	for i := 0; i+len(n) <= len(h); i++ {
		if h[i:i+len(n)] == n {
			return true
		}
	}
	return false
}

// Presence of a logical port on one side of an abstraction.
type Presence string

const (
	PresenceRequired Presence = "required"
	PresenceOptional Presence = "optional"
	PresenceIllegal  Presence = "illegal"
)

// SideDescriptor is the master- or slave-side role of a LogicalPort.
type SideDescriptor struct {
	Presence Presence
	Direction Direction
	Width     WidthExpr
	Default   string
}

// LogicalPort is one abstraction-defined signal (e.g. AWADDR), with its
// master and/or slave role.
type LogicalPort struct {
	Name   string
	Master *SideDescriptor
	Slave  *SideDescriptor
	IsClock bool
	IsReset bool
}

// VLNV is the (vendor, library, name, version) identity shared by
// BusDefinition and AbstractionDefinition, usable directly as a map key.
type VLNV struct {
	Vendor, Library, Name, Version string
}

func (v VLNV) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", v.Vendor, v.Library, v.Name, v.Version)
}

// MarshalText/UnmarshalText let VLNV serve as a JSON object key (the
// Library Index's on-disk cache keys its Catalog by VLNV).
func (v VLNV) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *VLNV) UnmarshalText(text []byte) error {
	parts := strings.SplitN(string(text), ":", 4)
	if len(parts) != 4 {
		return fmt.Errorf("model: malformed VLNV %q", text)
	}
	v.Vendor, v.Library, v.Name, v.Version = parts[0], parts[1], parts[2], parts[3]
	return nil
}

// BusDefinition is the (vendor,library,name,version)-identified bus, with
// its addressability/direct-connection flags and declared parameter names.
type BusDefinition struct {
	VLNV             VLNV
	IsAddressable    bool
	DirectConnection bool
	ParamNames       []string
	IsClockBus       bool // name matches "clock" case-insensitively
	IsResetBus       bool // name matches "reset" case-insensitively
}

// AbstractionDefinition enumerates the LogicalPorts for a BusDefinition.
type AbstractionDefinition struct {
	VLNV         VLNV
	BusRef       VLNV
	LogicalPorts []LogicalPort
}

// CatalogEntry pairs a BusDefinition with its AbstractionDefinition(s).
// In practice a bus definition has exactly one RTL abstraction, but the
// model allows more than one (e.g. a future register-transfer + a
// transactional-level abstraction of the same bus).
type CatalogEntry struct {
	Bus          BusDefinition
	Abstractions []AbstractionDefinition
}

// Catalog is the immutable, process-wide bus/abstraction index built by
// the Library Index (§4.3). Keyed by the BusDefinition's VLNV.
type Catalog map[VLNV]*CatalogEntry

// PortMap pairs one logical name with one physical port name, with an
// optional bit-slice recorded for the portMap's <range> (if the matcher
// only aligned part of the physical port's width).
type PortMap struct {
	LogicalName  string
	PhysicalName string
	Left, Right  *int // nil unless a partial bit-slice was recorded
}

// BusRole is a busInterface's role, per IP-XACT.
type BusRole string

const (
	RoleMaster  BusRole = "master"
	RoleSlave   BusRole = "slave"
	RoleSystem  BusRole = "system"
	RoleMonitor BusRole = "monitor"
)

// MemoryMap is attached to an addressable slave BusInterface.
type MemoryMap struct {
	Name           string
	AddressBlock   string
	BaseAddress    uint64
	Range          uint64
	Width          int
	Usage          string
}

// AddressSpace is attached to an addressable master BusInterface.
type AddressSpace struct {
	Name  string
	Range uint64
	Width int
}

// BusParam is a bus parameter propagated from the Module's parameter list
// into a BusInterface (§4.5).
type BusParam struct {
	Name  string // the bus-declared parameter name
	Value string // the matching SV parameter's name, carried as a reference
}

// BusInterface is one matcher-produced busInterface assignment.
type BusInterface struct {
	Name         string // sanitized group prefix
	Bus          BusDefinition
	Abstraction  AbstractionDefinition
	Role         BusRole
	PortMaps     []PortMap
	MemoryMap    *MemoryMap
	AddressSpace *AddressSpace
	Params       []BusParam
}
