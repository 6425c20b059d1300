// Command rulegraphdump loads a small JSON-described product (source
// artifacts plus static rules) and runs it through the rule applicator,
// printing the resulting build graph. It plays the role Blueprint's
// bootstrap/minibp plays as a minimal end-to-end driver exercising the
// core engine without a full front-end language.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"rulegraph/buildgraph"
	"rulegraph/filetag"
	"rulegraph/propertymap"
	"rulegraph/qerr"
	"rulegraph/resolved"
	"rulegraph/scriptengine"
)

type fixtureArtifact struct {
	Path string   `json:"path"`
	Tags []string `json:"tags"`
}

type fixtureRuleArtifact struct {
	FilePath string   `json:"filePath"`
	FileTags []string `json:"fileTags"`
}

type fixtureRule struct {
	Name          string                `json:"name"`
	Multiplex     bool                  `json:"multiplex"`
	Inputs        []string              `json:"inputs"`
	OutputFileTags []string             `json:"outputFileTags"`
	Artifacts     []fixtureRuleArtifact `json:"artifacts"`
	Commands      []string              `json:"commands"`
}

type fixture struct {
	BuildDirectory string            `json:"buildDirectory"`
	Sources        []fixtureArtifact `json:"sources"`
	Rules          []fixtureRule     `json:"rules"`
}

func main() {
	path := flag.String("fixture", "", "path to a JSON product fixture")
	flag.Parse()
	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: rulegraphdump -fixture <file.json>")
		os.Exit(2)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := run(*path, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(path string, logger *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return err
	}

	top := resolved.NewTopLevelProject("default")
	top.BuildDirectory = fx.BuildDirectory

	product := &resolved.ResolvedProduct{
		Name:              "fixture",
		Profile:           "default",
		Enabled:           true,
		BuildData:         resolved.NewProductBuildData(),
		ModuleProperties:  propertymap.New(),
		ProductProperties: propertymap.New(),
	}
	product.SetTopLevelProject(top)

	for _, sa := range fx.Sources {
		a := &resolved.Artifact{
			FilePath:     sa.Path,
			FileTags:     filetag.New(sa.Tags...),
			ArtifactType: resolved.SourceFile,
			Product:      product,
		}
		product.BuildData.InsertArtifact(a)
	}

	var rules []*resolved.Rule
	for _, fr := range fx.Rules {
		r := &resolved.Rule{
			Name:            fr.Name,
			Multiplex:       fr.Multiplex,
			Inputs:          filetag.New(fr.Inputs...),
			OutputFileTags:  filetag.New(fr.OutputFileTags...),
			RequiresInputs:  true,
			PrepareScript: scriptengine.ScriptFunction{
				SourceCode: buildCommandsScript(fr.Commands),
				Location:   qerr.Location{FilePath: path, Line: 1},
			},
		}
		for _, ra := range fr.Artifacts {
			r.Artifacts = append(r.Artifacts, &resolved.RuleArtifact{
				FilePath: quoteLiteral(ra.FilePath),
				FileTags: filetag.New(ra.FileTags...),
				Location: qerr.Location{FilePath: path, Line: 1},
			})
		}
		rules = append(rules, r)
	}
	product.Rules = rules

	ap := buildgraph.New(product, top, logger, nil, nil)
	for _, r := range rules {
		inputs := resolved.ArtifactSet{}
		for a := range product.BuildData.Nodes {
			if a.FileTags.Intersects(r.Inputs) {
				inputs.Add(a)
			}
		}
		if err := ap.ApplyRule(r, inputs); err != nil {
			return fmt.Errorf("applying rule %s: %w", r.Name, err)
		}
	}

	for a := range product.BuildData.Nodes {
		kind := "source"
		if a.ArtifactType == resolved.Generated {
			kind = "generated"
		}
		fmt.Printf("%s\t%s\t%v\n", kind, a.FilePath, a.FileTags.Sorted())
	}
	return nil
}

// buildCommandsScript renders a prepare_script body that returns the
// fixture's literal command list, since this driver has no real front-end
// language to author scripts in.
func buildCommandsScript(commands []string) string {
	src := "return []string{"
	for i, c := range commands {
		if i > 0 {
			src += ", "
		}
		src += quoteLiteral(c)
	}
	src += "}"
	return src
}

func quoteLiteral(s string) string {
	return fmt.Sprintf("%q", s)
}
