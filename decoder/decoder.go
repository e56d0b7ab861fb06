// Package decoder implements the instruction decoder: a descent over
// a cursor.Cursor driven by an opcode.Tree, accumulating
// decodectx.Context state for prefixes along the way.
package decoder

import (
	"github.com/Urethramancer/x86dis/cursor"
	"github.com/Urethramancer/x86dis/decodectx"
	"github.com/Urethramancer/x86dis/disasmerr"
	"github.com/Urethramancer/x86dis/opcode"
)

// Decode repeatedly invokes descend against the root of tree. A
// prefix-only result is applied to ctx and decoding continues; the
// first real instruction is returned. ctx must already be positioned
// (ctx.Reset) at cur's current offset/address.
//
// A nil, nil result means no opcode matched (a decode miss); the
// caller decides whether that becomes a synthetic "unknown opcode"
// entity or a stopped trace.
func Decode(cur *cursor.Cursor, ctx *decodectx.Context, tree *opcode.Tree) (*Instruction, error) {
	for {
		inst, err := descend(cur, ctx, tree)
		if err != nil {
			return nil, err
		}
		if inst == nil {
			return nil, nil
		}
		if inst.IsPrefixOnly() {
			ctx.ApplyPrefix(inst.Syntax.PrefixEffect)
			continue
		}
		return inst, nil
	}
}

// descend walks the trie as an explicit loop over a stack of
// (node, byte) pairs rather than call-stack recursion, so pathological
// inputs cannot drive the stack deep.
//
// It runs in two passes. The first descends as far as the trie allows,
// recording the node active at each level and the byte read there (a
// single byte value may index both a subtree and a leaf list on the
// same node, since longer and shorter encodings can share a prefix).
// The second unwinds from the deepest level reached back toward the
// root, trying each level's own leaf list at the byte read there: the
// "deeper match failed, fall back to this node's own leaves" step of
// the recursive formulation, without a call stack to unwind
// implicitly.
func descend(cur *cursor.Cursor, ctx *decodectx.Context, root *opcode.Tree) (*Instruction, error) {
	nodes := []*opcode.Tree{root}
	var bytes []byte

	for {
		node := nodes[len(nodes)-1]
		b, err := cur.ReadU8()
		if err != nil {
			// Nothing was consumed at this level; unwind using the
			// bytes already recorded for the levels reached so far.
			break
		}
		ctx.AddDecodedPrefix(b)
		bytes = append(bytes, b)
		child, ok := node.SubTree(b)
		if !ok {
			break
		}
		nodes = append(nodes, child)
	}

	for i := len(bytes) - 1; i >= 0; i-- {
		node, b := nodes[i], bytes[i]
		if leaves, ok := node.Leaves(b); ok {
			inst, err := buildFromLeaves(cur, ctx, leaves)
			if err != nil {
				return nil, err
			}
			if inst != nil {
				return inst, nil
			}
		}
		cur.Skip(-1)
		ctx.RemoveDecodedPrefixTop()
	}
	return nil, nil
}

// buildFromLeaves disambiguates leaves and decodes the selected
// syntax's operands. A nil, nil result means none of leaves
// matched (the caller rewinds and tries the level above); a non-nil
// error is a hard operand-decode failure that propagates immediately
// without trying any other level.
func buildFromLeaves(cur *cursor.Cursor, ctx *decodectx.Context, leaves []*opcode.Syntax) (*Instruction, error) {
	var leaf *opcode.Syntax
	if opcode.AnyExtended(leaves) {
		peek, perr := cur.PeekU8()
		if perr != nil {
			leaf = opcode.SelectLeaf(leaves, 0, false)
		} else {
			ext := (peek >> 3) & 0x07
			leaf = opcode.SelectLeaf(leaves, ext, true)
		}
	} else {
		leaf = opcode.SelectLeaf(leaves, 0, false)
	}
	if leaf == nil {
		return nil, nil
	}

	inst := &Instruction{Syntax: leaf, Address: ctx.VirtualAddress}
	if !leaf.IsPrefixOnly {
		args, err := decodeOperands(cur, ctx, leaf)
		if err != nil {
			return nil, errWrap(err)
		}
		inst.Args = args
	}
	inst.Size = cur.Position() - ctx.FileOffset
	inst.Raw = cur.Bytes(ctx.FileOffset, inst.Size)
	return inst, nil
}

// errWrap surfaces a truncated-operand read as a DecodeException
// rather than the bare cursor EndOfImage: a malformed operand
// mid-instruction is a different failure mode than "no opcode matched
// at all".
func errWrap(err error) error {
	if err == disasmerr.EndOfImage {
		return disasmerr.DecodeException
	}
	return err
}
