package opcode

import (
	"github.com/retroenv/retrogolib/log"
)

// Tree is a decode tree node: a prefix trie over opcode bytes. Each
// node carries a sparse mapping from byte value to child node, and a
// sparse mapping from byte value to the (possibly empty) list of leaf
// syntax records that terminate at this node via that byte. A single
// byte value may have both a child subtree and a leaf list when longer
// and shorter encodings share a prefix.
//
// A Tree is built once and never mutated afterwards; concurrent reads
// from multiple decode calls are safe.
type Tree struct {
	children [256]*Tree
	leaves   [256][]*Syntax
	logger   log.Logger
}

// NewTree returns an empty root node. logger may be nil, in which case
// insertion conflicts are not reported (used by tests that don't care).
func NewTree(logger log.Logger) *Tree {
	return &Tree{logger: logger}
}

// SubTree returns the child node reached by byte b, if any.
func (t *Tree) SubTree(b byte) (*Tree, bool) {
	c := t.children[b]
	return c, c != nil
}

// Leaves returns the leaf syntax list terminating at this node via
// byte b, if any.
func (t *Tree) Leaves(b byte) ([]*Syntax, bool) {
	l := t.leaves[b]
	return l, len(l) > 0
}

// Insert descends children for prefix[0:len(prefix)-1], creating them
// as needed, then appends syn to the leaf list at the final byte of
// prefix on that node.
func (t *Tree) Insert(prefix []byte, syn *Syntax) {
	node := t
	for _, b := range prefix[:len(prefix)-1] {
		if node.children[b] == nil {
			node.children[b] = &Tree{logger: t.logger}
		}
		node = node.children[b]
	}
	last := prefix[len(prefix)-1]
	node.checkConflict(last, syn)
	node.leaves[last] = append(node.leaves[last], syn)
}

// checkConflict logs when a second non-extended leaf is inserted at a
// byte that already has one. The opcode table contains a few such
// ambiguous pairs; first-match wins at decode time, but the collision
// is worth a log line on insertion.
func (t *Tree) checkConflict(b byte, syn *Syntax) {
	if syn.HasExt || t.logger == nil {
		return
	}
	for _, existing := range t.leaves[b] {
		if !existing.HasExt {
			t.logger.Warn("decode tree: ambiguous non-extended leaves for same prefix byte",
				log.String("existing", existing.Mnemonic),
				log.String("inserted", syn.Mnemonic),
			)
			return
		}
	}
}

// Build constructs a Tree from every syntax a Source yields. A syntax
// with RegInOpcode is inserted 8 times, once per register encoded in
// the low 3 bits of its last prefix byte.
func Build(src Source, logger log.Logger) *Tree {
	root := NewTree(logger)
	for _, syn := range src.Syntaxes() {
		syn := syn // each leaf must point at its own record, not the loop variable
		if syn.RegInOpcode {
			base := make([]byte, len(syn.Prefix))
			copy(base, syn.Prefix)
			last := base[len(base)-1] &^ 0x07
			for r := byte(0); r < 8; r++ {
				p := make([]byte, len(base))
				copy(p, base)
				p[len(p)-1] = last | r
				root.Insert(p, &syn)
			}
			continue
		}
		root.Insert(syn.Prefix, &syn)
	}
	return root
}

// SelectLeaf disambiguates the leaves at byte b: if any leaf is
// group-extended, ext (the ModR/M reg field, bits 5-3 of the peeked
// byte) selects the first extended leaf whose Ext field matches;
// otherwise the first non-extended leaf wins, in insertion order.
func SelectLeaf(leaves []*Syntax, ext uint8, haveExt bool) *Syntax {
	anyExtended := false
	for _, s := range leaves {
		if s.HasExt {
			anyExtended = true
			break
		}
	}
	if anyExtended && haveExt {
		for _, s := range leaves {
			if s.HasExt && s.Ext == ext {
				return s
			}
		}
		return nil
	}
	for _, s := range leaves {
		if !s.HasExt {
			return s
		}
	}
	return nil
}

// AnyExtended reports whether any leaf in the list requires a ModR/M
// extension peek to disambiguate.
func AnyExtended(leaves []*Syntax) bool {
	for _, s := range leaves {
		if s.HasExt {
			return true
		}
	}
	return false
}
