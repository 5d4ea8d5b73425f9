// Package report serializes resolved method relationships and the class
// hierarchy into the per-file JSON structure consumed by editor tooling.
package report

import (
	"mromap/internal/descriptor"
	"mromap/internal/registry"
	"mromap/internal/resolve"
)

// MethodDetail describes the method owning a relationship entry.
type MethodDetail struct {
	Name       string   `json:"name"`
	ClassName  string   `json:"class_name"`
	Line       int      `json:"line"`
	Column     int      `json:"column"`
	EndLine    int      `json:"end_line"`
	EndColumn  int      `json:"end_column"`
	IsAsync    bool     `json:"is_async"`
	IsAbstract bool     `json:"is_abstract"`
	Decorators []string `json:"decorators"`
}

// MethodRef points at a related method in an ancestor or descendant class.
type MethodRef struct {
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	FilePath  string `json:"file_path"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
}

// MethodEntry is one method together with its override lineage.
type MethodEntry struct {
	Method          MethodDetail `json:"method"`
	BaseMethods     []MethodRef  `json:"base_methods"`
	OverrideMethods []MethodRef  `json:"override_methods"`
}

// ClassInfo summarizes one class in the hierarchy table. BaseClasses holds
// the direct bases exactly as registered; SubClasses holds the normalized
// reverse-index entries.
type ClassInfo struct {
	FullName    string   `json:"full_name"`
	BaseClasses []string `json:"base_classes"`
	SubClasses  []string `json:"sub_classes"`
	Line        int      `json:"line"`
}

// File is the per-file report object. Classes is keyed by short class name.
type File struct {
	Methods []MethodEntry        `json:"methods"`
	Classes map[string]ClassInfo `json:"classes"`
}

// Build renders the report for every file that registered at least one
// class. Files whose classes participate in no relationship still appear,
// with an empty methods list, so hierarchy information is always visible.
func Build(reg *registry.Registry, rels map[string][]resolve.MethodRelationship) map[string]File {
	out := make(map[string]File)

	for _, id := range reg.Identities() {
		cls, ok := reg.Lookup(id)
		if !ok {
			continue
		}
		f, seen := out[cls.File]
		if !seen {
			f = File{
				Methods: make([]MethodEntry, 0),
				Classes: make(map[string]ClassInfo),
			}
		}
		f.Classes[registry.LastSegment(id)] = ClassInfo{
			FullName:    id,
			BaseClasses: emptyIfNil(cls.RawBases),
			SubClasses:  emptyIfNil(reg.Subclasses(id)),
			Line:        cls.Line,
		}
		out[cls.File] = f
	}

	for file, entries := range rels {
		f, seen := out[file]
		if !seen {
			// Relationship for a file with no hierarchy entry; should not
			// happen since every relationship owner is registered, but a
			// lone methods list is still better than dropping it.
			f = File{Methods: make([]MethodEntry, 0), Classes: make(map[string]ClassInfo)}
		}
		for _, rel := range entries {
			f.Methods = append(f.Methods, MethodEntry{
				Method:          methodDetail(rel.Method),
				BaseMethods:     methodRefs(rel.BaseMethods),
				OverrideMethods: methodRefs(rel.OverrideMethods),
			})
		}
		out[file] = f
	}

	return out
}

func methodDetail(m descriptor.Method) MethodDetail {
	return MethodDetail{
		Name:       m.Name,
		ClassName:  m.ClassName,
		Line:       m.Line,
		Column:     m.Column,
		EndLine:    m.EndLine,
		EndColumn:  m.EndColumn,
		IsAsync:    m.IsAsync,
		IsAbstract: m.IsAbstract,
		Decorators: emptyIfNil(m.Decorators),
	}
}

func methodRefs(methods []descriptor.Method) []MethodRef {
	refs := make([]MethodRef, 0, len(methods))
	for _, m := range methods {
		refs = append(refs, MethodRef{
			Name:      m.Name,
			ClassName: m.ClassName,
			FilePath:  m.FilePath,
			Line:      m.Line,
			Column:    m.Column,
			EndLine:   m.EndLine,
			EndColumn: m.EndColumn,
		})
	}
	return refs
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
