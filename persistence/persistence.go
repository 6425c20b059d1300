// Package persistence implements the PersistentPool contract of §6: a
// binary, versioned store/load pair for a product's build graph, writing
// and reading fields in the order §3 declares them (a wire-format
// contract), and rebuilding parent-edge back-references after load. It
// follows §9's design note to store Artifact/Transformer as arena entries
// referenced by index rather than as owning pointers, using
// encoding/gob the way the teacher's own microfactory/ subcommands lean on
// stdlib encoding packages for their own build-cache serialization rather
// than hand-rolling a binary format.
package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"rulegraph/filetag"
	"rulegraph/resolved"
)

// FormatVersion is bumped whenever a record's field order or shape
// changes; Load fails cleanly (§6: "A load that discovers the pool version
// to disagree must fail cleanly") rather than attempting to interpret a
// mismatched stream.
const FormatVersion = 1

// RuleLookup resolves a persisted rule name back to a live *resolved.Rule
// at load time; the applicator's Rule objects themselves are not persisted
// (they come from re-resolving the front-end sources), only the name
// identifying which one a transformer belongs to.
type RuleLookup func(name string) (*resolved.Rule, error)

type artifactRecord struct {
	ID             int
	FilePath       string
	FileTags       []string
	ArtifactType   int
	AlwaysUpdated  bool
	TargetOfModule bool
	TransformerID  int // 0 means "no transformer"
	ChildIDs       []int
	TimestampUnix  int64
}

type transformerRecord struct {
	ID                         int
	RuleName                   string
	InputIDs                   []int
	OutputIDs                  []int
	ExplicitlyDependsOnIDs     []int
	Commands                   []string
	AlwaysRun                  bool
	CommandsNeedChangeTracking bool
}

type poolRecord struct {
	Version      int
	Artifacts    []artifactRecord
	Transformers []transformerRecord
	RootIDs      []int
}

// Store serializes bd's artifacts and transformers, writing fields in the
// order declared for Artifact and Transformer in §3.
func Store(w io.Writer, bd *resolved.ProductBuildData) error {
	ids := map[*resolved.Artifact]int{}
	nextID := 1
	for a := range bd.Nodes {
		ids[a] = nextID
		nextID++
	}

	transformerIDs := map[*resolved.Transformer]int{}
	nextTID := 1
	var transformers []transformerRecord
	for a := range bd.Nodes {
		t := a.Transformer
		if t == nil {
			continue
		}
		if _, ok := transformerIDs[t]; ok {
			continue
		}
		transformerIDs[t] = nextTID
		nextTID++
	}

	var artifacts []artifactRecord
	for a, id := range ids {
		rec := artifactRecord{
			ID:             id,
			FilePath:       a.FilePath,
			FileTags:       a.FileTags.Sorted(),
			ArtifactType:   int(a.ArtifactType),
			AlwaysUpdated:  a.AlwaysUpdated,
			TargetOfModule: a.TargetOfModule,
		}
		if a.Transformer != nil {
			rec.TransformerID = transformerIDs[a.Transformer]
		}
		if !a.Timestamp.IsZero() {
			rec.TimestampUnix = a.Timestamp.Unix()
		}
		for child := range a.Children {
			if cid, ok := ids[child]; ok {
				rec.ChildIDs = append(rec.ChildIDs, cid)
			}
		}
		artifacts = append(artifacts, rec)
	}

	for t, tid := range transformerIDs {
		rec := transformerRecord{
			ID:                         tid,
			AlwaysRun:                  t.AlwaysRun,
			CommandsNeedChangeTracking: t.CommandsNeedChangeTracking,
			Commands:                   t.Commands,
		}
		if t.Rule != nil {
			rec.RuleName = t.Rule.Name
		}
		for a := range t.Inputs {
			if id, ok := ids[a]; ok {
				rec.InputIDs = append(rec.InputIDs, id)
			}
		}
		for a := range t.Outputs {
			if id, ok := ids[a]; ok {
				rec.OutputIDs = append(rec.OutputIDs, id)
			}
		}
		for a := range t.ExplicitlyDependsOn {
			if id, ok := ids[a]; ok {
				rec.ExplicitlyDependsOnIDs = append(rec.ExplicitlyDependsOnIDs, id)
			}
		}
		transformers = append(transformers, rec)
	}

	var rootIDs []int
	for a := range bd.Roots {
		if id, ok := ids[a]; ok {
			rootIDs = append(rootIDs, id)
		}
	}

	rec := poolRecord{Version: FormatVersion, Artifacts: artifacts, Transformers: transformers, RootIDs: rootIDs}
	return gob.NewEncoder(w).Encode(&rec)
}

// Load deserializes a build graph previously written by Store, rebuilding
// parent-edge back-references: for every node, for every child in
// node.children, node is added to child.parents (§6).
func Load(r io.Reader, lookupRule RuleLookup) (*resolved.ProductBuildData, error) {
	var rec poolRecord
	if err := gob.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding build graph: %w", err)
	}
	if rec.Version != FormatVersion {
		return nil, fmt.Errorf("build graph pool version mismatch: got %d, want %d", rec.Version, FormatVersion)
	}

	bd := resolved.NewProductBuildData()
	artifactsByID := map[int]*resolved.Artifact{}
	for _, ar := range rec.Artifacts {
		a := &resolved.Artifact{
			FilePath:       ar.FilePath,
			FileTags:       filetag.New(ar.FileTags...),
			ArtifactType:   resolved.ArtifactType(ar.ArtifactType),
			AlwaysUpdated:  ar.AlwaysUpdated,
			TargetOfModule: ar.TargetOfModule,
		}
		if ar.TimestampUnix != 0 {
			a.Timestamp = time.Unix(ar.TimestampUnix, 0)
		}
		artifactsByID[ar.ID] = a
		bd.InsertArtifact(a)
	}

	transformersByID := map[int]*resolved.Transformer{}
	for _, tr := range rec.Transformers {
		var rule *resolved.Rule
		if lookupRule != nil && tr.RuleName != "" {
			var err error
			rule, err = lookupRule(tr.RuleName)
			if err != nil {
				return nil, err
			}
		}
		inputs := resolved.ArtifactSet{}
		for _, id := range tr.InputIDs {
			if a, ok := artifactsByID[id]; ok {
				inputs.Add(a)
			}
		}
		var t *resolved.Transformer
		if rule != nil {
			t = resolved.NewTransformer(rule, inputs)
		} else {
			t = &resolved.Transformer{Inputs: inputs, Outputs: resolved.ArtifactSet{}}
		}
		t.AlwaysRun = tr.AlwaysRun
		t.CommandsNeedChangeTracking = tr.CommandsNeedChangeTracking
		t.Commands = tr.Commands
		for _, id := range tr.OutputIDs {
			if a, ok := artifactsByID[id]; ok {
				t.Outputs.Add(a)
			}
		}
		if t.ExplicitlyDependsOn == nil {
			t.ExplicitlyDependsOn = resolved.ArtifactSet{}
		}
		for _, id := range tr.ExplicitlyDependsOnIDs {
			if a, ok := artifactsByID[id]; ok {
				t.ExplicitlyDependsOn.Add(a)
			}
		}
		transformersByID[tr.ID] = t
	}

	for _, ar := range rec.Artifacts {
		a := artifactsByID[ar.ID]
		if ar.TransformerID != 0 {
			a.Transformer = transformersByID[ar.TransformerID]
		}
		// Rebuild parent-edge back-references (§6): for every node, for
		// every child in node.children, add node to child.parents.
		for _, cid := range ar.ChildIDs {
			if child, ok := artifactsByID[cid]; ok {
				resolved.Connect(a, child)
			}
		}
	}

	for _, id := range rec.RootIDs {
		if a, ok := artifactsByID[id]; ok {
			bd.Roots.Add(a)
		}
	}

	return bd, nil
}

// RoundTrip is a convenience helper used by tests: store bd into an
// in-memory buffer, then load it back.
func RoundTrip(bd *resolved.ProductBuildData, lookupRule RuleLookup) (*resolved.ProductBuildData, error) {
	var buf bytes.Buffer
	if err := Store(&buf, bd); err != nil {
		return nil, err
	}
	return Load(&buf, lookupRule)
}
