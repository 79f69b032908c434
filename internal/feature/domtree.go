package feature

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/canopy-crawler/canopy/internal/config"
	"github.com/canopy-crawler/canopy/internal/model"
)

// maxTreeDepth bounds the extracted tree. Pages with pathologically
// deep nesting get a truncated tree rather than a huge artifact.
const maxTreeDepth = 25

// DOMNode is one element in the extracted structural tree.
type DOMNode struct {
	// Tag is the lowercase element name.
	Tag string `json:"tag"`

	// ID is the id attribute, when present.
	ID string `json:"id,omitempty"`

	// Classes are the class attribute tokens.
	Classes []string `json:"classes,omitempty"`

	// Children are the element children, in document order. Omitted
	// below the depth limit.
	Children []*DOMNode `json:"children,omitempty"`

	// Truncated marks a node whose children were cut by the depth limit.
	Truncated bool `json:"truncated,omitempty"`
}

// DOMExtractor builds a depth-limited structural tree of each page and
// stores it as a JSON artifact. Text content is deliberately excluded;
// the tree describes page structure, not page content.
type DOMExtractor struct {
	store ArtifactStore
}

// NewDOMExtractor creates the structural extraction stage.
func NewDOMExtractor(store ArtifactStore) *DOMExtractor {
	return &DOMExtractor{store: store}
}

// Name implements Feature.
func (d *DOMExtractor) Name() string { return config.FeatureDOM }

// Initialize implements Feature.
func (d *DOMExtractor) Initialize(context.Context, *config.Config) error { return nil }

// BeforeCrawl implements Feature.
func (d *DOMExtractor) BeforeCrawl(context.Context) error { return nil }

// ProcessTask extracts the tree from the fetched body and stores it.
func (d *DOMExtractor) ProcessTask(_ context.Context, task *Task, doc *model.Document) *StageResult {
	if !doc.IsHTML() {
		return nil
	}

	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return &StageResult{Err: fmt.Errorf("parse %s: %w", task.Address.Key, err)}
	}

	root := gq.Find("html").First()
	if root.Length() == 0 {
		return &StageResult{Err: fmt.Errorf("no html element in %s", task.Address.Key)}
	}

	tree := buildNode(root, 0)
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return &StageResult{Err: fmt.Errorf("encode tree for %s: %w", task.Address.Key, err)}
	}

	path, err := d.store.Store("dom", task.Address.Host, doc.Hash, "json", data)
	if err != nil {
		return &StageResult{Err: fmt.Errorf("store tree: %w", err), Fatal: true}
	}
	return &StageResult{Artifacts: []model.Artifact{{Kind: "dom", Path: path}}}
}

// Finalize implements Feature.
func (d *DOMExtractor) Finalize(context.Context) error { return nil }

// buildNode converts one goquery selection into a DOMNode, recursing
// into element children until the depth limit.
func buildNode(sel *goquery.Selection, depth int) *DOMNode {
	node := &DOMNode{Tag: goquery.NodeName(sel)}
	if id, ok := sel.Attr("id"); ok && id != "" {
		node.ID = id
	}
	if class, ok := sel.Attr("class"); ok {
		if classes := strings.Fields(class); len(classes) > 0 {
			node.Classes = classes
		}
	}

	children := sel.Children()
	if children.Length() == 0 {
		return node
	}
	if depth >= maxTreeDepth {
		node.Truncated = true
		return node
	}

	children.Each(func(_ int, child *goquery.Selection) {
		node.Children = append(node.Children, buildNode(child, depth+1))
	})
	return node
}
