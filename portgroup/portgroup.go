// Package portgroup implements the Port Grouper (spec §4.4): it
// tokenizes each physical port name, computes the set of candidate
// prefixes a port's name could belong to, and clusters ports that share
// a qualifying prefix into named groups, leaving the rest in a residual
// set.
package portgroup

import (
	"regexp"
	"strings"

	"github.com/jtbus/sv2ipxact/model"
)

// Group is a named cluster of ports inferred to belong to one bus
// interface, or a single-port clock/reset group.
type Group struct {
	Name    string
	Ports   []model.Port
	IsClock bool
	IsReset bool
}

// Result is the Port Grouper's output: the inferred groups plus the
// ports that matched no qualifying prefix.
type Result struct {
	Groups   []Group
	Residual []model.Port
}

var wellKnownBusRoots = map[string]bool{
	"AXI": true, "APB": true, "AHB": true, "CHI": true,
	"DFI": true, "ACE": true, "ATB": true,
}

var clockNames = map[string]bool{"CLK": true, "CLOCK": true, "ACLK": true}
var resetNames = map[string]bool{"RST": true, "RST_N": true, "RESET": true, "ARESETN": true}

var camelBoundary1 = regexp.MustCompile(`([a-z0-9])([A-Z])`)
var camelBoundary2 = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
var allDigits = regexp.MustCompile(`^[0-9]+$`)

// Tokenize splits a port name on underscores and CamelCase word
// boundaries, normalizing every token to upper case.
func Tokenize(name string) []string {
	var tokens []string
	for _, seg := range strings.Split(name, "_") {
		if seg == "" {
			continue
		}
		seg = camelBoundary1.ReplaceAllString(seg, "${1}_${2}")
		seg = camelBoundary2.ReplaceAllString(seg, "${1}_${2}")
		for _, t := range strings.Split(seg, "_") {
			if t != "" {
				tokens = append(tokens, strings.ToUpper(t))
			}
		}
	}
	return tokens
}

func isSuffixToken(tok string) bool {
	return tok == "O" || tok == "I" || allDigits.MatchString(tok)
}

// IsSuffixToken reports whether tok is a trailing direction/instance
// marker (_o, _i, a bare digit run) that should be disregarded when
// aligning a physical port's tokens against a logical port name.
func IsSuffixToken(tok string) bool {
	return isSuffixToken(tok)
}

// StripTrailingSuffixToken returns toks with its final element removed
// if that element is a direction/instance suffix token, per §4.4's
// suffix-candidate rule. It returns nil if no suffix token is present
// so callers can tell "nothing to strip" from "stripped to empty".
func StripTrailingSuffixToken(toks []string) []string {
	n := len(toks)
	if n >= 2 && isSuffixToken(toks[n-1]) {
		return toks[:n-1]
	}
	return nil
}

// candidate is one member of a port's candidate-prefix set: the token
// sequence and its underscore-joined form.
type candidate struct {
	tokens []string
	joined string
}

// portCandidates returns a port name's candidate prefixes, longest
// first, so the caller can pick the longest qualifying one without a
// second sort. Every prefix of the tokenized name, the full name
// included, is a candidate; if the name carries a trailing direction/instance suffix
// (_o, _i, a trailing digit run), the suffix-stripped token sequence's
// prefixes are unioned in too.
func portCandidates(name string) []candidate {
	toks := Tokenize(name)
	seen := map[string]bool{}
	var out []candidate
	add := func(ts []string) {
		j := strings.Join(ts, "_")
		if seen[j] {
			return
		}
		seen[j] = true
		out = append(out, candidate{tokens: ts, joined: j})
	}
	for i := len(toks); i >= 1; i-- {
		add(toks[:i])
	}
	if n := len(toks); n >= 2 && isSuffixToken(toks[n-1]) {
		stripped := toks[:n-1]
		for i := len(stripped); i >= 1; i-- {
			add(stripped[:i])
		}
	}
	return out
}

// trieNode is one node of a prefixTrie, keyed by token.
type trieNode struct {
	children map[string]*trieNode
	ports    map[int]bool
}

func newTrieNode() *trieNode {
	return &trieNode{children: map[string]*trieNode{}, ports: map[int]bool{}}
}

// prefixTrie indexes every port's candidate token sequences so the
// grouper can ask, for any prefix, how many distinct ports carry it as
// a candidate — the basis for "non-trivial common prefix" in §4.4.
type prefixTrie struct {
	root *trieNode
}

func newPrefixTrie() *prefixTrie {
	return &prefixTrie{root: newTrieNode()}
}

func (t *prefixTrie) insert(tokens []string, portIdx int) {
	n := t.root
	for _, tok := range tokens {
		child, ok := n.children[tok]
		if !ok {
			child = newTrieNode()
			n.children[tok] = child
		}
		n = child
		n.ports[portIdx] = true
	}
}

func (t *prefixTrie) count(tokens []string) int {
	n := t.root
	for _, tok := range tokens {
		child, ok := n.children[tok]
		if !ok {
			return 0
		}
		n = child
	}
	return len(n.ports)
}

// Infer builds the port groups for m's ports, per §4.4. Interface-
// reference ports are routed straight to the residual (the matcher
// ignores them, per §4.2); single-token clock/reset names are routed to
// dedicated single-port groups; everything else is clustered by longest
// qualifying shared candidate prefix.
func Infer(m *model.Module) Result {
	var res Result
	var groupable []model.Port

	for _, p := range m.Ports {
		if p.IsInterfaceRef {
			res.Residual = append(res.Residual, p)
			continue
		}
		norm := strings.ToUpper(p.Name)
		switch {
		case clockNames[norm]:
			res.Groups = append(res.Groups, Group{Name: p.Name, Ports: []model.Port{p}, IsClock: true})
		case resetNames[norm]:
			res.Groups = append(res.Groups, Group{Name: p.Name, Ports: []model.Port{p}, IsReset: true})
		default:
			groupable = append(groupable, p)
		}
	}

	trie := newPrefixTrie()
	allCandidates := make([][]candidate, len(groupable))
	for i, p := range groupable {
		cands := portCandidates(p.Name)
		allCandidates[i] = cands
		for _, c := range cands {
			trie.insert(c.tokens, i)
		}
	}

	assigned := make([]string, len(groupable))
	for i, cands := range allCandidates {
		for _, c := range cands {
			n := len(c.tokens)
			cnt := trie.count(c.tokens)
			qualifies := (n >= 2 && cnt >= 2) || (n == 1 && cnt >= 2 && wellKnownBusRoots[c.tokens[0]])
			if qualifies {
				assigned[i] = c.joined
				break
			}
		}
	}

	var order []string
	byName := map[string]*Group{}
	for i, p := range groupable {
		name := assigned[i]
		if name == "" {
			res.Residual = append(res.Residual, p)
			continue
		}
		g, ok := byName[name]
		if !ok {
			g = &Group{Name: name}
			byName[name] = g
			order = append(order, name)
		}
		g.Ports = append(g.Ports, p)
	}
	for _, name := range order {
		res.Groups = append(res.Groups, *byName[name])
	}

	return res
}
