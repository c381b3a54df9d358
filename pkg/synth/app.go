package synth

import (
	"github.com/chazu/tryworks/pkg/construct"
)

// App is the root of a construct tree. It has no owner, so it contributes
// nothing to generated names, and it carries the stacks that make up one
// application.
type App struct {
	node *construct.Node
}

var _ construct.Construct = (*App)(nil)

// NewApp creates a tree root with the given id. An empty id is fine; it
// just disappears from every descendant's generated name.
func NewApp(id string) *App {
	a := &App{}
	node, err := construct.NewNode(a, nil, id)
	if err != nil {
		// A node without an owner has no siblings to collide with, so
		// creation cannot fail.
		panic(err)
	}
	a.node = node
	return a
}

// TreeNode implements construct.Construct.
func (a *App) TreeNode() *construct.Node {
	return a.node
}

// Synth compiles the app with a default synthesizer. Callers that need a
// custom tracker, validator, schema registry, or logger should build a
// Synthesizer themselves.
func (a *App) Synth() (*Result, error) {
	return NewSynthesizer(Config{}).Synth(a)
}
