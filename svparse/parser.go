// Package svparse implements the SV Header Parser (spec §4.2): given
// preprocessed (comment/conditional-stripped) SystemVerilog source text,
// it locates the first top-level module and extracts its name,
// parameter list, and port list, tolerating malformed individual
// entries by skipping them with a warning rather than aborting the
// whole parse (§7).
package svparse

import (
	"strings"

	"github.com/jtbus/sv2ipxact/model"
	"github.com/jtbus/sv2ipxact/runreport"
)

var directionKeywords = map[string]model.Direction{
	"input":  model.DirIn,
	"output": model.DirOut,
	"inout":  model.DirInout,
}

var netTypeKeywords = map[string]bool{
	"wire": true, "reg": true, "logic": true, "tri": true,
	"wand": true, "wor": true, "supply0": true, "supply1": true,
}

// Parse extracts a Module from cleaned source text. It returns
// runreport.NoModuleFound (fatal, per §7) if no `module ... ;` header is
// found at all.
func Parse(text string, sourceFile string, rep *runreport.Report) (*model.Module, error) {
	tokens := tokenize(text)

	modIdx := findModuleKeyword(tokens)
	if modIdx < 0 {
		return nil, runreport.Fatal(runreport.NoModuleFound, "no `module` declaration found in %s", sourceFile)
	}
	if modIdx+1 >= len(tokens) || !tokens[modIdx+1].is("Ident") {
		return nil, runreport.Fatal(runreport.NoModuleFound, "malformed module header in %s", sourceFile)
	}

	name := tokens[modIdx+1].Val
	idx := modIdx + 2

	var paramTokens []tok
	if idx < len(tokens) && tokens[idx].is("Hash") {
		idx++
		if idx >= len(tokens) || !tokens[idx].is("LParen") {
			rep.Add(runreport.MalformedParameter, tokens[idx-1].Line, 0, "expected '(' after '#' in module header")
		} else {
			close, ok := matchBalanced(tokens, idx)
			if !ok {
				return nil, runreport.Fatal(runreport.NoModuleFound, "unbalanced delimiters in parameter list of %s", sourceFile)
			}
			paramTokens = tokens[idx+1 : close]
			idx = close + 1
		}
	}

	var portTokens []tok
	if idx < len(tokens) && tokens[idx].is("LParen") {
		close, ok := matchBalanced(tokens, idx)
		if !ok {
			return nil, runreport.Fatal(runreport.NoModuleFound, "unbalanced delimiters in port list of %s", sourceFile)
		}
		portTokens = tokens[idx+1 : close]
		idx = close + 1
	}

	if idx < len(tokens) && tokens[idx].is("Semi") {
		idx++
	} else {
		rep.Add(runreport.MalformedPort, tokens[min(idx, len(tokens)-1)].Line, 0, "missing ';' terminating module header")
	}

	bodyEnd := findEndmodule(tokens, idx)
	bodyTokens := tokens[idx:bodyEnd]

	params := parseParameters(paramTokens, rep)
	ports := parsePorts(portTokens, bodyTokens, rep)

	return &model.Module{
		Name:       name,
		Parameters: params,
		Ports:      ports,
		SourceFile: sourceFile,
	}, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func findModuleKeyword(tokens []tok) int {
	for i, t := range tokens {
		if t.isVal("Ident", "module") {
			return i
		}
	}
	return -1
}

func findEndmodule(tokens []tok, from int) int {
	for i := from; i < len(tokens); i++ {
		if tokens[i].isVal("Ident", "endmodule") {
			return i
		}
	}
	return len(tokens)
}

// matchBalanced returns the index of the token that closes the
// open-delimiter token at tokens[open], honoring nested
// parens/brackets/braces of any kind (balanced-delimiter awareness per
// §4.2's parameter-expression rule).
func matchBalanced(tokens []tok, open int) (int, bool) {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].Kind {
		case "LParen", "LBrack", "LBrace":
			depth++
		case "RParen", "RBrack", "RBrace":
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return -1, false
}

// depths returns, for each token index, the nesting depth of
// parens/brackets/braces at that token (the opening/closing token
// itself is counted at the depth *outside* the pair, i.e. depth 0 for a
// top-level bracket pair's own brackets).
func depths(tokens []tok) []int {
	out := make([]int, len(tokens))
	d := 0
	for i, t := range tokens {
		switch t.Kind {
		case "LParen", "LBrack", "LBrace":
			out[i] = d
			d++
		case "RParen", "RBrack", "RBrace":
			d--
			out[i] = d
		default:
			out[i] = d
		}
	}
	return out
}

// splitTopLevel splits tokens on Comma tokens that occur at depth 0.
func splitTopLevel(tokens []tok) [][]tok {
	if len(tokens) == 0 {
		return nil
	}
	d := depths(tokens)
	var out [][]tok
	start := 0
	for i, t := range tokens {
		if t.Kind == "Comma" && d[i] == 0 {
			out = append(out, tokens[start:i])
			start = i + 1
		}
	}
	out = append(out, tokens[start:])
	return out
}

// splitStatements splits tokens on Semi tokens at depth 0, dropping the
// terminating Semi itself from each statement.
func splitStatements(tokens []tok) [][]tok {
	if len(tokens) == 0 {
		return nil
	}
	d := depths(tokens)
	var out [][]tok
	start := 0
	for i, t := range tokens {
		if t.Kind == "Semi" && d[i] == 0 {
			if i > start {
				out = append(out, tokens[start:i])
			}
			start = i + 1
		}
	}
	if start < len(tokens) {
		out = append(out, tokens[start:])
	}
	return out
}

func tokensToText(tokens []tok) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && needsSpace(tokens[i-1], t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.Val)
	}
	return b.String()
}

func needsSpace(prev, cur tok) bool {
	tight := map[string]bool{
		"LParen": true, "LBrack": true, "LBrace": true, "Dot": true, "Hash": true,
	}
	tightAfter := map[string]bool{
		"RParen": true, "RBrack": true, "RBrace": true, "Dot": true, "Comma": false,
	}
	if tight[cur.Kind] {
		return false
	}
	if prev.Kind == "LParen" || prev.Kind == "LBrack" || prev.Kind == "LBrace" || prev.Kind == "Dot" || prev.Kind == "Colon" {
		return false
	}
	if prev.Kind == "Op" || cur.Kind == "Op" {
		return false
	}
	if cur.Kind == "RParen" || cur.Kind == "RBrack" || cur.Kind == "RBrace" || cur.Kind == "Comma" || cur.Kind == "Colon" || cur.Kind == "Semi" {
		return false
	}
	_ = tightAfter
	return true
}

// --- parameters ---------------------------------------------------------

func parseParameters(tokens []tok, rep *runreport.Report) []model.Parameter {
	entries := splitTopLevel(tokens)
	var params []model.Parameter
	isLocal := false
	haveKind := false

	for _, entry := range entries {
		if len(entry) == 0 {
			continue
		}
		idx := 0
		if entry[0].isVal("Ident", "parameter") {
			isLocal, haveKind = false, true
			idx = 1
		} else if entry[0].isVal("Ident", "localparam") {
			isLocal, haveKind = true, true
			idx = 1
		} else if !haveKind {
			rep.Add(runreport.MalformedParameter, entry[0].Line, 0, "parameter entry missing parameter/localparam keyword")
			continue
		}

		rest := entry[idx:]
		d := depths(rest)
		eqIdx := -1
		for i, t := range rest {
			if t.Kind == "Op" && t.Val == "=" && d[i] == 0 {
				eqIdx = i
				break
			}
		}

		var nameTokens, typeTokens, defaultTokens []tok
		if eqIdx >= 0 {
			defaultTokens = rest[eqIdx+1:]
			rest = rest[:eqIdx]
		}
		// The name is the last top-level Ident token remaining.
		nameIdx := lastTopLevelIdent(rest)
		if nameIdx < 0 {
			rep.Add(runreport.MalformedParameter, entry[0].Line, 0, "cannot find parameter name in entry %q", tokensToText(entry))
			continue
		}
		nameTokens = rest[nameIdx : nameIdx+1]
		typeTokens = rest[:nameIdx]

		params = append(params, model.Parameter{
			Name:    nameTokens[0].Val,
			TypeTok: tokensToText(typeTokens),
			Default: tokensToText(defaultTokens),
			IsLocal: isLocal,
			Line:    entry[0].Line,
		})
	}
	return params
}

func lastTopLevelIdent(tokens []tok) int {
	d := depths(tokens)
	last := -1
	for i, t := range tokens {
		if t.Kind == "Ident" && d[i] == 0 {
			last = i
		}
	}
	return last
}

// --- ports ---------------------------------------------------------------

// portParseState threads stickiness (direction persists across commas
// when omitted, per §4.2) through a sequence of entries.
type portParseState struct {
	dir     model.Direction
	haveDir bool
	width   *model.WidthExpr
	endian  model.Endianness
	packed  []string
	typeTok string
}

func parsePorts(headerTokens, bodyTokens []tok, rep *runreport.Report) []model.Port {
	entries := splitTopLevel(headerTokens)
	entries = filterEmpty(entries)

	isANSI := false
	for _, e := range entries {
		for _, t := range e {
			if t.Kind == "Ident" && directionKeywords[t.Val] != "" {
				isANSI = true
				break
			}
		}
		if isANSI {
			break
		}
	}

	if isANSI {
		st := &portParseState{}
		var ports []model.Port
		for _, entry := range entries {
			p, ok := parsePortEntry(entry, st, rep)
			if ok {
				ports = append(ports, p)
			}
		}
		return ports
	}

	// Non-ANSI: header entries are bare port names; look up each one's
	// declaration in the module body, preserving header order.
	var names []string
	for _, e := range entries {
		idx := lastTopLevelIdent(e)
		if idx < 0 {
			continue
		}
		names = append(names, e[idx].Val)
	}

	decls := parseBodyDeclarations(bodyTokens, rep)

	var ports []model.Port
	for _, n := range names {
		if p, ok := decls[n]; ok {
			ports = append(ports, p)
		} else {
			rep.Add(runreport.MalformedPort, 0, 0, "no direction declaration found for port %q", n)
		}
	}
	return ports
}

func filterEmpty(entries [][]tok) [][]tok {
	var out [][]tok
	for _, e := range entries {
		if len(e) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// parseBodyDeclarations scans non-ANSI `input/output/inout ... name, ...;`
// statements anywhere in the module body and returns a name->Port map.
func parseBodyDeclarations(bodyTokens []tok, rep *runreport.Report) map[string]model.Port {
	out := map[string]model.Port{}
	for _, stmt := range splitStatements(bodyTokens) {
		if len(stmt) == 0 || stmt[0].Kind != "Ident" || directionKeywords[stmt[0].Val] == "" {
			continue
		}
		st := &portParseState{}
		for _, entry := range splitTopLevel(stmt) {
			p, ok := parsePortEntry(entry, st, rep)
			if ok {
				out[p.Name] = p
			}
		}
	}
	return out
}

// parsePortEntry parses one comma-separated port declaration entry,
// updating/reading sticky direction and width state as needed.
func parsePortEntry(entry []tok, st *portParseState, rep *runreport.Report) (model.Port, bool) {
	if len(entry) == 0 {
		return model.Port{}, false
	}

	d := depths(entry)

	// Interface-reference ports: `my_bus_if.master bus_m`.
	hasDot := false
	for i, t := range entry {
		if t.Kind == "Dot" && d[i] == 0 {
			hasDot = true
			break
		}
	}

	topIdents := make([]int, 0, 4)
	for i, t := range entry {
		if t.Kind == "Ident" && d[i] == 0 {
			topIdents = append(topIdents, i)
		}
	}
	if len(topIdents) == 0 {
		rep.Add(runreport.MalformedPort, entry[0].Line, 0, "port entry %q has no identifier", tokensToText(entry))
		return model.Port{}, false
	}
	nameIdx := topIdents[len(topIdents)-1]
	name := entry[nameIdx].Val

	if hasDot {
		return model.Port{
			Name:             name,
			Direction:        model.DirInout,
			IsInterfaceRef:   true,
			InterfaceTypeTok: tokensToText(entry[:nameIdx]),
			Line:             entry[0].Line,
		}, true
	}

	signed := false
	sawDirection := false
	var typeToks []string
	for _, i := range topIdents[:len(topIdents)-1] {
		v := entry[i].Val
		switch {
		case directionKeywords[v] != "":
			st.dir = directionKeywords[v]
			st.haveDir = true
			sawDirection = true
		case v == "signed":
			signed = true
		case v == "unsigned":
			signed = false
		default:
			typeToks = append(typeToks, v)
		}
	}
	_ = sawDirection
	typeTok := strings.Join(typeToks, " ")
	if typeTok == "" {
		typeTok = st.typeTok
	}
	st.typeTok = typeTok
	if !st.haveDir {
		rep.Add(runreport.MalformedPort, entry[0].Line, 0, "port %q declared without a direction", name)
		return model.Port{}, false
	}

	// Bracket groups before the name are packed dims/width; after the
	// name they are unpacked dims.
	var preBrackets, postBrackets [][]tok
	for i := 0; i < len(entry); i++ {
		if entry[i].Kind != "LBrack" || d[i] != 0 {
			continue
		}
		close, ok := matchBalanced(entry, i)
		if !ok {
			continue
		}
		inner := entry[i+1 : close]
		if i < nameIdx {
			preBrackets = append(preBrackets, inner)
		} else {
			postBrackets = append(postBrackets, inner)
		}
	}

	var width *model.WidthExpr
	endian := model.EndianUnknown
	var packed []string
	if len(preBrackets) > 0 {
		raw := tokensToText(preBrackets[0])
		we := model.WidthExpr{Raw: raw}
		width = &we
		endian = inferEndian(preBrackets[0])
		for _, b := range preBrackets[1:] {
			packed = append(packed, "["+tokensToText(b)+"]")
		}
	} else if st.width != nil {
		width = st.width
		endian = st.endian
		packed = st.packed
	}
	st.width = width
	st.endian = endian
	st.packed = packed

	var unpacked []string
	for _, b := range postBrackets {
		unpacked = append(unpacked, "["+tokensToText(b)+"]")
	}

	return model.Port{
		Name:         name,
		Direction:    st.dir,
		Signed:       signed,
		Width:        width,
		PackedDims:   packed,
		UnpackedDims: unpacked,
		Endian:       endian,
		TypeTok:      typeTok,
		Line:         entry[0].Line,
	}, true
}

func inferEndian(inner []tok) model.Endianness {
	d := depths(inner)
	colonIdx := -1
	for i, t := range inner {
		if t.Kind == "Colon" && d[i] == 0 {
			colonIdx = i
			break
		}
	}
	if colonIdx < 0 {
		return model.EndianUnknown
	}
	left := asLiteralInt(inner[:colonIdx])
	right := asLiteralInt(inner[colonIdx+1:])
	if left == nil || right == nil {
		return model.EndianUnknown
	}
	if *left >= *right {
		return model.BigEndian
	}
	return model.LittleEndian
}

func asLiteralInt(tokens []tok) *int {
	if len(tokens) != 1 || tokens[0].Kind != "Number" {
		return nil
	}
	n := 0
	for _, c := range tokens[0].Val {
		if c < '0' || c > '9' {
			return nil
		}
		n = n*10 + int(c-'0')
	}
	return &n
}
