// Package cdecl renders CTF types as C declarations.
package cdecl

import (
	"fmt"
	"strings"

	"github.com/jtang613/goctf/pkg/ctf/sections"
)

const (
	// maxDepth bounds reference chains.
	maxDepth = 32

	// maxNodes bounds the records visited for one declaration. Function
	// types fan out once per argument, so depth alone does not bound the
	// work on a corrupt file.
	maxNodes = 1024
)

// NameFunc resolves a string-table reference.
type NameFunc func(sections.NameRef) string

// TypeResolver provides type resolution over a decoded type section.
// It caches resolved declarations and is not safe for concurrent use.
type TypeResolver struct {
	types []sections.TypeRecord // types[i] has type index i+1
	name  NameFunc
	cache map[uint16]string
}

// NewTypeResolver creates a new type resolver.
func NewTypeResolver(types []sections.TypeRecord, name NameFunc) *TypeResolver {
	return &TypeResolver{
		types: types,
		name:  name,
		cache: make(map[uint16]string),
	}
}

// walk is the state of one top-level resolution. Types on the active
// path render as "..." when referenced again.
type walk struct {
	*TypeResolver
	active map[uint16]bool
	budget int
}

func (r *TypeResolver) newWalk() *walk {
	return &walk{
		TypeResolver: r,
		active:       make(map[uint16]bool),
		budget:       maxNodes,
	}
}

// Record returns the record for a type index, or nil if there is none.
func (r *TypeResolver) Record(typeIdx uint16) *sections.TypeRecord {
	if typeIdx == 0 || int(typeIdx) > len(r.types) {
		return nil
	}
	return &r.types[typeIdx-1]
}

// ResolveType resolves a type index to a C declaration.
func (r *TypeResolver) ResolveType(typeIdx uint16) string {
	if s, ok := r.cache[typeIdx]; ok {
		return s
	}
	s := r.newWalk().resolve(typeIdx, 0)
	r.cache[typeIdx] = s
	return s
}

func (r *walk) resolve(typeIdx uint16, depth int) string {
	if typeIdx == 0 {
		return "void"
	}

	rec := r.Record(typeIdx)
	if rec == nil {
		return fmt.Sprintf("type_0x%x", typeIdx)
	}
	if depth > maxDepth || r.budget <= 0 || r.active[typeIdx] {
		return "..."
	}
	r.budget--
	r.active[typeIdx] = true
	defer delete(r.active, typeIdx)

	switch rec.Kind {
	case sections.CTF_K_INTEGER, sections.CTF_K_FLOAT, sections.CTF_K_TYPEDEF:
		return r.name(rec.Name)
	case sections.CTF_K_POINTER:
		return r.resolvePointer(rec, depth)
	case sections.CTF_K_ARRAY:
		return fmt.Sprintf("%s[%d]", r.resolve(rec.Array.Contents, depth+1), rec.Array.Nelems)
	case sections.CTF_K_FUNCTION:
		return fmt.Sprintf("%s (%s)", r.resolve(rec.Type, depth+1), r.resolveArgs(rec.Args, depth))
	case sections.CTF_K_STRUCT, sections.CTF_K_FORWARD:
		return "struct " + r.name(rec.Name)
	case sections.CTF_K_UNION:
		return "union " + r.name(rec.Name)
	case sections.CTF_K_ENUM:
		return "enum " + r.name(rec.Name)
	case sections.CTF_K_CONST:
		return r.resolveModifier(rec, "const", depth)
	case sections.CTF_K_VOLATILE:
		return r.resolveModifier(rec, "volatile", depth)
	case sections.CTF_K_RESTRICT:
		return r.resolveModifier(rec, "restrict", depth)
	default:
		return fmt.Sprintf("type_0x%x", typeIdx)
	}
}

// resolvePointer renders pointers, using the (*) form for function
// pointers.
func (r *walk) resolvePointer(rec *sections.TypeRecord, depth int) string {
	fn := r.Record(rec.Type)
	if fn != nil && fn.Kind == sections.CTF_K_FUNCTION && depth < maxDepth && !r.active[rec.Type] {
		r.active[rec.Type] = true
		defer delete(r.active, rec.Type)
		return fmt.Sprintf("%s (*)(%s)", r.resolve(fn.Type, depth+2), r.resolveArgs(fn.Args, depth+1))
	}
	target := r.resolve(rec.Type, depth+1)
	if strings.HasSuffix(target, "*") {
		return target + "*"
	}
	return target + " *"
}

// resolveModifier puts qualifiers of pointers after the star, and
// qualifiers of anything else in front.
func (r *walk) resolveModifier(rec *sections.TypeRecord, qual string, depth int) string {
	if target := r.Record(rec.Type); target != nil && target.Kind == sections.CTF_K_POINTER {
		return r.resolve(rec.Type, depth+1) + qual
	}
	return qual + " " + r.resolve(rec.Type, depth+1)
}

// resolveArgs renders an argument list. A zero argument type marks a
// variadic function.
func (r *walk) resolveArgs(args []uint16, depth int) string {
	if len(args) == 0 {
		return "void"
	}

	parts := make([]string, 0, len(args))
	for _, a := range args {
		if r.budget <= 0 {
			parts = append(parts, "...")
			break
		}
		if a == 0 {
			parts = append(parts, "...")
			continue
		}
		parts = append(parts, r.resolve(a, depth+1))
	}
	return strings.Join(parts, ", ")
}

// ResolveFunction renders the signature of a function entry from the
// function section.
func (r *TypeResolver) ResolveFunction(ret uint16, args []uint16) string {
	w := r.newWalk()
	return fmt.Sprintf("%s (%s)", w.resolve(ret, 1), w.resolveArgs(args, 0))
}
