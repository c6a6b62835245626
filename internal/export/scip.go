// Package export writes snapshots, call edges and history to portable
// formats: a SCIP protobuf index and zstd-compressed JSON lines.
package export

import (
	"io"
	"path/filepath"
	"sort"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"symtrail/internal/errors"
	"symtrail/internal/symbols"
	"symtrail/internal/version"
)

// LocalSymbol is the SCIP symbol string for a symbol id. Ids are unique per
// file, so document-local symbols are sufficient.
func LocalSymbol(id string) string {
	return "local " + id
}

// SCIP builds an index with one document per snapshot. Each non-File symbol
// gets a SymbolInformation and a definition occurrence; each call edge adds a
// reference occurrence to the callee in the caller's document.
func SCIP(snaps []*symbols.Snapshot, edges []symbols.Edge, projectRoot string) *scippb.Index {
	sorted := append([]*symbols.Snapshot(nil), snaps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FileID < sorted[j].FileID })

	type located struct {
		sym  symbols.Symbol
		file string
	}
	byID := make(map[string]located)
	for _, s := range sorted {
		for _, sym := range s.Symbols {
			byID[sym.ID] = located{sym: sym, file: s.FileID}
		}
	}

	docs := make(map[string]*scippb.Document, len(sorted))
	index := &scippb.Index{
		Metadata: &scippb.Metadata{
			Version: scippb.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scippb.ToolInfo{
				Name:    "symtrail",
				Version: version.Version,
			},
			ProjectRoot:          projectRootURI(projectRoot),
			TextDocumentEncoding: scippb.TextEncoding_UTF8,
		},
	}

	for _, s := range sorted {
		doc := &scippb.Document{
			RelativePath:     s.FileID,
			Language:         scipLanguage(s.LanguageID),
			PositionEncoding: scippb.PositionEncoding_UTF32CodeUnitOffsetFromLineStart,
		}
		for _, sym := range s.Symbols {
			if sym.Kind == symbols.KindFile {
				continue
			}
			info := &scippb.SymbolInformation{
				Symbol:      LocalSymbol(sym.ID),
				DisplayName: sym.Name,
				Kind:        scipKind(sym.Kind),
			}
			if sym.Summary != "" {
				info.Documentation = []string{sym.Summary}
			}
			if sym.ContainerID != "" {
				info.EnclosingSymbol = LocalSymbol(sym.ContainerID)
			}
			doc.Symbols = append(doc.Symbols, info)
			doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
				Range:          scipRange(sym.SelectionRange),
				Symbol:         LocalSymbol(sym.ID),
				SymbolRoles:    int32(scippb.SymbolRole_Definition),
				EnclosingRange: scipRange(sym.Range),
			})
		}
		docs[s.FileID] = doc
		index.Documents = append(index.Documents, doc)
	}

	for _, e := range edges {
		from, ok := byID[e.From]
		if !ok {
			continue
		}
		to, ok := byID[e.To]
		if !ok || e.Kind != symbols.EdgeCall {
			continue
		}
		doc := docs[from.file]
		doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
			Range:  scipRange(to.sym.SelectionRange),
			Symbol: LocalSymbol(e.To),
		})
	}

	return index
}

// WriteSCIP marshals index to w.
func WriteSCIP(w io.Writer, index *scippb.Index) error {
	data, err := proto.Marshal(index)
	if err != nil {
		return errors.Wrap(errors.ExportFailed, err, "failed to marshal SCIP index")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(errors.ExportFailed, err, "failed to write SCIP index")
	}
	return nil
}

// ReadSCIP decodes an index written by WriteSCIP.
func ReadSCIP(r io.Reader) (*scippb.Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ExportFailed, err, "failed to read SCIP index")
	}
	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrap(errors.ExportFailed, err, "failed to parse SCIP index")
	}
	return &index, nil
}

// scipRange converts to SCIP's 0-based [startLine, startChar, (endLine,) endChar].
func scipRange(r symbols.Range) []int32 {
	sl, sc := int32(r.Start.Line-1), int32(r.Start.Column-1)
	el, ec := int32(r.End.Line-1), int32(r.End.Column-1)
	if sl == el {
		return []int32{sl, sc, ec}
	}
	return []int32{sl, sc, el, ec}
}

func scipKind(k symbols.Kind) scippb.SymbolInformation_Kind {
	switch k {
	case symbols.KindClass:
		return scippb.SymbolInformation_Class
	case symbols.KindMethod:
		return scippb.SymbolInformation_Method
	case symbols.KindFunction:
		return scippb.SymbolInformation_Function
	case symbols.KindProperty:
		return scippb.SymbolInformation_Property
	case symbols.KindVariable:
		return scippb.SymbolInformation_Variable
	default:
		return scippb.SymbolInformation_UnspecifiedKind
	}
}

func scipLanguage(languageID string) string {
	switch languageID {
	case "typescript":
		return scippb.Language_TypeScript.String()
	case "typescriptreact":
		return scippb.Language_TypeScriptReact.String()
	case "javascript":
		return scippb.Language_JavaScript.String()
	case "javascriptreact":
		return scippb.Language_JavaScriptReact.String()
	default:
		return languageID
	}
}

func projectRootURI(root string) string {
	if root == "" {
		return ""
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return "file://" + filepath.ToSlash(root)
}
